package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"roommate-server/config"
	"roommate-server/routes"
	"roommate-server/scheduler"
	"roommate-server/services"
	"roommate-server/storage"
	"roommate-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	db := storage.InitializeDB()
	storage.InitializeRedis()

	// Services
	sched := scheduler.New(db)
	dispatcher := services.NewMessageDispatcher(cfg)
	chatService := services.NewChatMessageService(db)
	cardService := services.NewCardService(db, cfg, sched)
	requestService := services.NewCardRequestService(db, cfg, chatService)
	reviewService := services.NewReviewService(db)
	userService := services.NewUserService(db, cfg, dispatcher)
	routes.Setup(cardService, requestService, chatService, reviewService, userService)

	// Clocked task runner for deadline-triggered card transitions
	runner := scheduler.NewRunner(db, cfg.SchedulerInterval)
	runner.Register(scheduler.HandlerChangeCardStatus, cardService.DeadlineHandler())
	runnerCtx, stopRunner := context.WithCancel(context.Background())
	defer stopRunner()
	go runner.Start(runnerCtx)

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT Verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	// Routes
	user := app.Party("/api/user")
	{
		user.Post("/authorization-code", routes.SendAuthorizationCode)
		user.Post("/authorize", routes.Authorize)
		user.Post("/register", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.Register)
		user.Get("/me", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.Me)
		user.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUser)
	}

	card := app.Party("/api/card", accessTokenVerifierMiddleware, utils.FullyRegisteredMiddleware)
	{
		card.Get("/feed", routes.ListFeed)
		card.Get("/tags", routes.ListTags)
		card.Get("/requests", routes.MyRequests)
		card.Get("/owner/{ownerID}", routes.CardsByOwner)
		card.Post("/", routes.CreateCard)
		card.Get("/{id}", routes.GetCard)
		card.Put("/{id}", routes.UpdateCard)
		card.Post("/{id}/skip", routes.SkipCard)
		card.Post("/{id}/request", routes.CreateCardRequest)
		card.Delete("/{id}/request", routes.CancelCardRequest)
		card.Get("/{id}/requests", routes.GetCardRequests)
		card.Patch("/{id}/requests", routes.HandleCardRequest)
	}

	chat := app.Party("/api/chat", accessTokenVerifierMiddleware, utils.FullyRegisteredMiddleware)
	{
		chat.Get("/", routes.MyChats)
		chat.Post("/", routes.SendMessage)
		chat.Get("/{id}", routes.GetChat)
		chat.Delete("/{id}", routes.DeleteMessage)
	}

	review := app.Party("/api/review", accessTokenVerifierMiddleware, utils.FullyRegisteredMiddleware)
	{
		review.Post("/", routes.CreateReview)
		review.Get("/user/{userID}", routes.ListReviews)
	}

	city := app.Party("/api/city")
	{
		city.Get("/", routes.ListCities)
		city.Get("/{id}", routes.GetCity)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
