package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/fleetwise/fleet-journal/internal/auth"
	"github.com/fleetwise/fleet-journal/internal/classify"
	"github.com/fleetwise/fleet-journal/internal/gps"
	"github.com/fleetwise/fleet-journal/internal/handlers"
	"github.com/fleetwise/fleet-journal/internal/middleware"
	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

func newStore() store.Store {
	if os.Getenv("STORE_BACKEND") == "memory" {
		log.Info("Using in-memory store")
		return store.NewMemoryStore()
	}
	client, err := store.ConnectMongo()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "fleet_journal"
	}
	log.Info("Connected to MongoDB")
	return store.NewMongoStore(client, dbName)
}

// seedAdmin makes sure a login exists on a fresh store.
func seedAdmin(authService *auth.Service, users store.Collection) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	ctx := context.Background()
	existing, err := users.Filter(ctx, store.Conditions{"email": email}, nil)
	if err != nil || len(existing) > 0 {
		return
	}
	hash, err := authService.HashPassword(password)
	if err != nil {
		log.WithError(err).Warn("Failed to hash admin password")
		return
	}
	_, err = users.Create(ctx, store.Record{
		"email":         email,
		"display_name":  "Fleet Admin",
		"password_hash": hash,
		"role":          string(models.RoleAdmin),
		"is_active":     true,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to seed admin user")
		return
	}
	log.WithField("email", email).Info("Seeded admin user")
}

func main() {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	st := newStore()

	authService, err := auth.NewService()
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}
	seedAdmin(authService, st.Collection(store.CollectionUsers))

	gpsClient := gps.NewClient(os.Getenv("GPS_PROVIDER_URL"))

	var suggester classify.Suggester
	if url := os.Getenv("AI_SUGGEST_URL"); url != "" {
		suggester = classify.NewHTTPSuggester(url)
		log.Info("AI trip suggestions enabled")
	}

	authHandler := handlers.NewAuthHandler(authService, st.Collection(store.CollectionUsers))
	journalHandler := handlers.NewJournalHandler(st, gpsClient, suggester)
	vehicleHandler := handlers.NewVehicleHandler(st)
	geofenceHandler := handlers.NewGeofenceHandler(st)

	authMW := middleware.NewAuthMiddleware(authService)
	rateMW := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/journal/sync", journalHandler.SyncTrips)
	mux.HandleFunc("GET /api/journal/unregistered", journalHandler.Unregistered)
	mux.HandleFunc("POST /api/journal/register", journalHandler.Register)
	mux.HandleFunc("GET /api/journal", journalHandler.List)
	mux.HandleFunc("DELETE /api/journal/{id}", journalHandler.Delete)

	mux.HandleFunc("GET /api/vehicles", vehicleHandler.List)
	mux.HandleFunc("GET /api/vehicles/{id}", vehicleHandler.Get)
	mux.Handle("POST /api/vehicles", authMW.RequireFleetAdmin(http.HandlerFunc(vehicleHandler.Create)))
	mux.Handle("PUT /api/vehicles/{id}", authMW.RequireFleetAdmin(http.HandlerFunc(vehicleHandler.Update)))
	mux.Handle("DELETE /api/vehicles/{id}", authMW.RequireFleetAdmin(http.HandlerFunc(vehicleHandler.Delete)))

	mux.HandleFunc("GET /api/geofences", geofenceHandler.List)
	mux.Handle("POST /api/geofences", authMW.RequireFleetAdmin(http.HandlerFunc(geofenceHandler.Create)))
	mux.Handle("PUT /api/geofences/{id}", authMW.RequireFleetAdmin(http.HandlerFunc(geofenceHandler.Update)))
	mux.Handle("DELETE /api/geofences/{id}", authMW.RequireFleetAdmin(http.HandlerFunc(geofenceHandler.Delete)))

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		feed := gps.NewFeed(broker, "fleet-journal-api", st.Collection(store.CollectionVehicles))
		if err := feed.Start(context.Background()); err != nil {
			log.WithError(err).Warn("Position feed unavailable")
		} else {
			defer feed.Stop()
		}
	}

	handler := rateMW.RateLimit(120, 60)(authMW.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
