package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/MikeDwight/meal-plan-app/internal/config"
	"github.com/MikeDwight/meal-plan-app/internal/handlers"
	"github.com/MikeDwight/meal-plan-app/internal/middleware"
	"github.com/MikeDwight/meal-plan-app/internal/models"
	"github.com/MikeDwight/meal-plan-app/internal/repository"
	"github.com/MikeDwight/meal-plan-app/internal/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router *chi.Mux
	config config.Config
}

func New(database *sql.DB, cfg config.Config) *Server {
	householdRepo := repository.NewHouseholdRepository(database)
	tokenRepo := repository.NewAPITokenRepository(database)
	catalogRepo := repository.NewCatalogRepository(database)
	recipeRepo := repository.NewRecipeRepository(database)
	pantryRepo := repository.NewPantryRepository(database)
	weekPlanRepo := repository.NewWeekPlanRepository(database)
	shoppingRepo := repository.NewShoppingItemRepository(database)
	transitionRepo := repository.NewTransitionItemRepository(database)
	poolRepo := repository.NewRecipePoolRepository(database)

	generator := services.NewMealPlanGenerator(householdRepo, recipeRepo, pantryRepo, weekPlanRepo)
	poolGenerator := services.NewPoolGenerator(householdRepo, recipeRepo, pantryRepo, weekPlanRepo, poolRepo)
	builder := services.NewShoppingListBuilder(householdRepo, weekPlanRepo, pantryRepo, shoppingRepo)
	shoppingList := services.NewShoppingListService(weekPlanRepo, shoppingRepo)
	weekPlanService := services.NewWeekPlanService(recipeRepo, weekPlanRepo, builder)
	transitionService := services.NewTransitionService(householdRepo, transitionRepo)
	calendarService := services.NewCalendarService(householdRepo, weekPlanRepo)

	adminHandler := handlers.NewAdminHandler(householdRepo, tokenRepo)
	tokenHandler := handlers.NewTokenHandler(tokenRepo)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo, pantryRepo)
	recipeHandler := handlers.NewRecipeHandler(recipeRepo, catalogRepo)
	mealPlanHandler := handlers.NewMealPlanHandler(generator, weekPlanService, builder, calendarService)
	poolHandler := handlers.NewPoolHandler(poolGenerator)
	shoppingHandler := handlers.NewShoppingHandler(builder, shoppingList)
	transitionHandler := handlers.NewTransitionHandler(transitionService)

	router := chi.NewRouter()

	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Compress(5))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	router.With(middleware.RequireAdminToken(cfg.AdminToken)).Post("/api/households", adminHandler.CreateHousehold)

	// Calendar clients can only pass a token in the URL, so the feed also
	// takes ical-scoped tokens.
	router.With(middleware.RequireHouseholdToken(tokenRepo, models.TokenScopeAPI, models.TokenScopeICal)).
		Get("/api/mealplan/ical", mealPlanHandler.ICal)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireHouseholdToken(tokenRepo, models.TokenScopeAPI))

		r.Get("/api/tokens", tokenHandler.ListTokens)
		r.Post("/api/tokens", tokenHandler.CreateToken)
		r.Delete("/api/tokens/{id}", tokenHandler.DeleteToken)

		r.Post("/api/units", catalogHandler.CreateUnit)
		r.Post("/api/aisles", catalogHandler.CreateAisle)
		r.Post("/api/tags", catalogHandler.CreateTag)
		r.Post("/api/ingredients", catalogHandler.CreateIngredient)
		r.Get("/api/pantry", catalogHandler.ListPantry)
		r.Post("/api/pantry", catalogHandler.CreatePantryItem)

		r.Get("/api/recipes", recipeHandler.List)
		r.Post("/api/recipes", recipeHandler.Create)
		r.Delete("/api/recipes/{id}", recipeHandler.Delete)

		r.Post("/api/mealplan/generate", mealPlanHandler.Generate)
		r.Get("/api/mealplan", mealPlanHandler.Get)
		r.Put("/api/mealplan/slot", mealPlanHandler.SetSlot)
		r.Post("/api/mealplan/clear-week", mealPlanHandler.ClearWeek)

		r.Post("/api/mealplan/pool/generate", poolHandler.Generate)
		r.Get("/api/mealplan/pool", poolHandler.Get)
		r.Post("/api/mealplan/pool/clear", poolHandler.Clear)

		r.Post("/api/shoppinglist/build", shoppingHandler.Build)
		r.Get("/api/shoppinglist", shoppingHandler.List)
		r.Post("/api/shoppinglist/archive-done", shoppingHandler.ArchiveDone)
		r.Post("/api/shoppinglist/purge", shoppingHandler.Purge)
		r.Post("/api/shoppingitems", shoppingHandler.CreateItem)
		r.Patch("/api/shoppingitem/{id}", shoppingHandler.UpdateItem)

		r.Get("/api/transitionitems", transitionHandler.List)
		r.Post("/api/transitionitems", transitionHandler.Create)
		r.Patch("/api/transitionitem/{id}", transitionHandler.Update)
		r.Delete("/api/transitionitem/{id}", transitionHandler.Delete)
		r.Post("/api/transition/apply", transitionHandler.Apply)
	})

	server := &Server{
		router: router,
		config: cfg,
	}

	return server
}

func (server *Server) Handler() http.Handler {
	return server.router
}

func (server *Server) Start() error {
	address := ":" + server.config.Port
	slog.Info("starting server", "address", address)
	return http.ListenAndServe(address, server.router)
}
