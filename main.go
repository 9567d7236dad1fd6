package main

import (
	"log"

	api "flowdesk-backend/cmd/api"
	eventdomain "flowdesk-backend/internal/event/domain"
	eventRepo "flowdesk-backend/internal/event/repository"
	integrationDelivery "flowdesk-backend/internal/integration/delivery"
	integrationdomain "flowdesk-backend/internal/integration/domain"
	integrationRepo "flowdesk-backend/internal/integration/repository"
	integrationUsecase "flowdesk-backend/internal/integration/usecase"
	messagedomain "flowdesk-backend/internal/message/domain"
	messageRepo "flowdesk-backend/internal/message/repository"
	"flowdesk-backend/pkg/ai"
	"flowdesk-backend/pkg/config"
	"flowdesk-backend/pkg/database"
	"flowdesk-backend/pkg/gcal"
	"flowdesk-backend/pkg/gmail"
	"flowdesk-backend/pkg/oauthprovider"
	"flowdesk-backend/pkg/slackchat"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&integrationdomain.IntegrationCredential{},
		&integrationdomain.ExternalReferenceMapping{},
		&integrationdomain.OAuthState{},
		&eventdomain.Event{},
		&messagedomain.Message{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	credentialRepository := integrationRepo.NewCredentialRepository(db)
	mappingRepository := integrationRepo.NewMappingRepository(db)
	stateRepository := integrationRepo.NewOAuthStateRepository(db)
	eventRepository := eventRepo.NewEventRepository(db)
	messageRepository := messageRepo.NewMessageRepository(db)

	// Initialize provider OAuth clients
	oauthClients := map[integrationdomain.Provider]integrationUsecase.ProviderOAuth{
		integrationdomain.ProviderGoogle: oauthprovider.NewGoogleClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI),
		integrationdomain.ProviderSlack:  oauthprovider.NewSlackClient(cfg.SlackClientID, cfg.SlackClientSecret, cfg.SlackRedirectURI),
	}

	// Initialize provider services
	calendarService := gcal.NewService()
	gmailService := gmail.NewService()
	slackService := slackchat.NewService()

	aiService, err := ai.NewService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI service:", err)
	}

	// Initialize use cases (dependency injection)
	vault := integrationUsecase.NewVault(credentialRepository, oauthClients)
	coordinator := integrationUsecase.NewSyncCoordinator()
	oauthFlow := integrationUsecase.NewOAuthFlow(vault, stateRepository, mappingRepository, oauthClients, cfg.StateSecret, cfg.FrontendURL)
	calendarSync := integrationUsecase.NewCalendarSync(vault, coordinator, eventRepository, mappingRepository, calendarService)
	inboxIngest := integrationUsecase.NewInboxIngest(vault, coordinator, mappingRepository, messageRepository, gmailService, aiService)
	channelGateway := integrationUsecase.NewChannelGateway(vault, slackService, aiService, messageRepository)

	// Initialize HTTP handler
	integrationHandler := integrationDelivery.NewIntegrationHandler(oauthFlow, calendarSync, inboxIngest, channelGateway)
	handler := api.NewHandler(integrationHandler, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
