package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"roommate-server/config"
	"roommate-server/models"
	"roommate-server/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// IdentifierType classifies a login value by shape.
type IdentifierType string

const (
	IdentifierTypePhoneNumber IdentifierType = "phone_number"
	IdentifierTypeEmail       IdentifierType = "email"
	IdentifierTypeUndefined   IdentifierType = "undefined"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DetectIdentifierType reports whether the value is shaped like a phone
// number, an email address, or neither.
func DetectIdentifierType(value string) IdentifierType {
	if utils.ValidatePhoneNumber(value) && !strings.Contains(value, "@") {
		return IdentifierTypePhoneNumber
	}
	if emailPattern.MatchString(value) {
		return IdentifierTypeEmail
	}
	return IdentifierTypeUndefined
}

type UserService struct {
	db         *gorm.DB
	cfg        config.Config
	dispatcher *MessageDispatcher
}

func NewUserService(db *gorm.DB, cfg config.Config, dispatcher *MessageDispatcher) *UserService {
	return &UserService{db: db, cfg: cfg, dispatcher: dispatcher}
}

// SendAuthorizationCode creates and delivers a fresh login code for the
// identifier. A second code within the countdown window is refused.
func (s *UserService) SendAuthorizationCode(ctx context.Context, login string) (*models.AuthorizationCode, error) {
	login, err := s.normalizeLogin(login)
	if err != nil {
		return nil, err
	}

	var last models.AuthorizationCode
	err = s.db.Where("login = ?", login).Order("created_at DESC").First(&last).Error
	if err == nil && last.CreatedAt.After(time.Now().Add(-s.cfg.AuthCodeCountdown)) {
		return nil, ErrCodeCountdown
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	code, err := generateDigits(s.cfg.AuthCodeLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	authorizationCode := models.AuthorizationCode{
		Login:          login,
		CodeHash:       string(hash),
		ExpirationDate: time.Now().Add(s.cfg.AuthCodeExpiresIn),
	}
	if err := s.db.Create(&authorizationCode).Error; err != nil {
		return nil, err
	}

	result, err := s.dispatcher.Send(ctx, Message{
		Content:    fmt.Sprintf("Your authorization code: %s", code),
		Recipients: []string{login},
	})
	if err != nil {
		log.Printf("failed to deliver authorization code to %s: %v", login, err)
	} else if result.Status == SendStatusOther {
		log.Printf("authorization code for %s not dispatched: %s", login, result.Detail)
	}

	return &authorizationCode, nil
}

// Authorize redeems a login code and returns the (possibly newly created)
// user.
func (s *UserService) Authorize(login, code string) (*models.User, error) {
	login, err := s.normalizeLogin(login)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var candidates []models.AuthorizationCode
		err := tx.Where("login = ?", login).Order("created_at DESC").Find(&candidates).Error
		if err != nil {
			return err
		}

		var match *models.AuthorizationCode
		for i := range candidates {
			if bcrypt.CompareHashAndPassword([]byte(candidates[i].CodeHash), []byte(code)) == nil {
				match = &candidates[i]
				break
			}
		}
		if match == nil {
			return ErrInvalidCode
		}
		if match.IsUsed {
			return ErrCodeUsed
		}
		if match.IsExpired(time.Now()) {
			return ErrCodeExpired
		}

		if err := tx.Model(match).Update("is_used", true).Error; err != nil {
			return err
		}

		err = tx.Where("phone_number = ?", login).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{PhoneNumber: login}
			return tx.Create(&user).Error
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type RegisterInput struct {
	FirstName  string
	LastName   string
	Patronymic string
	Email      string
	Dob        *time.Time
	Gender     string
	AboutMe    string
}

// Register completes the user's profile and records consent to processing of
// personal data. A user with an email gets a welcome message.
func (s *UserService) Register(ctx context.Context, userID uint, input RegisterInput) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Patronymic = input.Patronymic
	user.Email = input.Email
	user.Dob = input.Dob
	user.Gender = input.Gender
	user.AboutMe = input.AboutMe
	if user.ConsentAt == nil {
		now := time.Now()
		user.ConsentAt = &now
	}

	if err := s.db.Save(&user).Error; err != nil {
		return nil, err
	}

	if user.Email != "" {
		_, err := s.dispatcher.Send(ctx, Message{
			Content:    fmt.Sprintf("%s, you have successfully registered!", user.ShortName()),
			Recipients: []string{user.Email},
		})
		if err != nil {
			log.Printf("failed to send registration message to %s: %v", user.Email, err)
		}
	}

	return &user, nil
}

// Get loads one user with their social links.
func (s *UserService) Get(userID uint) (*models.User, error) {
	var user models.User
	err := s.db.Preload("SocialLinks").First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// normalizeLogin validates the identifier shape and canonicalizes it. Users
// sign in by phone number; email identifiers are delivery-only and cannot
// authorize.
func (s *UserService) normalizeLogin(login string) (string, error) {
	if DetectIdentifierType(login) != IdentifierTypePhoneNumber {
		return "", ErrInvalidLogin
	}
	return utils.NormalizePhoneNumber(login), nil
}

func generateDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", d.Int64())
	}
	return b.String(), nil
}
