package services

import (
	"testing"
	"time"

	"roommate-server/config"
	"roommate-server/models"
	"roommate-server/scheduler"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() config.Config {
	return config.Config{
		ActiveCardLimit:      3,
		RejectedRequestLimit: 3,
		AuthCodeLength:       6,
		AuthCodeExpiresIn:    5 * time.Minute,
		AuthCodeCountdown:    time.Minute,
		MessageSendRetries:   5,
		MessageRetryDelay:    time.Millisecond,
		SchedulerInterval:    30 * time.Second,
		AppDebug:             true,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.UserSocialLink{},
		&models.AuthorizationCode{},
		&models.City{},
		&models.Card{},
		&models.CardTag{},
		&models.CardPhoto{},
		&models.CardRequest{},
		&models.CardSkip{},
		&models.ChatMessage{},
		&models.Review{},
		&models.ScheduledTask{},
	)
	require.NoError(t, err)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, phone string) *models.User {
	t.Helper()
	now := time.Now()
	user := models.User{
		PhoneNumber: phone,
		FirstName:   "Test",
		LastName:    "User",
		ConsentAt:   &now,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createTestCard(t *testing.T, db *gorm.DB, ownerID uint, status string, limit uint) *models.Card {
	t.Helper()
	card := models.Card{
		OwnerID: ownerID,
		Header:  "Test card",
		Limit:   limit,
		Status:  status,
	}
	require.NoError(t, db.Create(&card).Error)
	return &card
}

// testServices bundles the wired service graph the way main assembles it.
type testServices struct {
	db       *gorm.DB
	cards    *CardService
	requests *CardRequestService
	chat     *ChatMessageService
	reviews  *ReviewService
	users    *UserService
	sched    *scheduler.Scheduler
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()

	sched := scheduler.New(db)
	chat := NewChatMessageService(db)
	return &testServices{
		db:       db,
		cards:    NewCardService(db, cfg, sched),
		requests: NewCardRequestService(db, cfg, chat),
		chat:     chat,
		reviews:  NewReviewService(db),
		users:    NewUserService(db, cfg, NewMessageDispatcher(cfg)),
		sched:    sched,
	}
}
