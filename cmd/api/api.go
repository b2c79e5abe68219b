package api

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/nartuliga/nartuliga-server/cmd/config"
	"github.com/nartuliga/nartuliga-server/service/account"
	"github.com/nartuliga/nartuliga-server/service/blob"
	"github.com/nartuliga/nartuliga-server/service/category"
	"github.com/nartuliga/nartuliga-server/service/comment"
	"github.com/nartuliga/nartuliga-server/service/like"
	"github.com/nartuliga/nartuliga-server/service/post"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	blobs   blob.Store
	cfg     *config.Config
}

func NewApiServer(address string, db *gorm.DB, blobs blob.Store, cfg *config.Config) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		blobs:   blobs,
		cfg:     cfg,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	accountHandler := account.NewHandler(s.db, s.cfg.SecretKey)
	accountHandler.RegisterRoutes(subrouter)

	categoryHandler := category.NewHandler(s.db, s.cfg.SecretKey)
	categoryHandler.RegisterRoutes(subrouter)

	postHandler := post.NewHandler(s.db, s.blobs, s.cfg.SecretKey)
	postHandler.RegisterRoutes(subrouter)

	commentHandler := comment.NewHandler(s.db, s.cfg.SecretKey)
	commentHandler.RegisterRoutes(subrouter)

	likeHandler := like.NewHandler(s.db, s.cfg.SecretKey)
	likeHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"Metadata"}),
	)

	server := &http.Server{
		Addr:         s.address,
		Handler:      handlers.LoggingHandler(os.Stdout, cors(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Println("Server running at", s.address)
	return server.ListenAndServe()
}
