package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/contacthub/contacthub-api/internal/config"
	"github.com/contacthub/contacthub-api/internal/logging"
	fsrepo "github.com/contacthub/contacthub-api/internal/repository/firestore"
	miniorepo "github.com/contacthub/contacthub-api/internal/repository/minio"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
	"github.com/contacthub/contacthub-api/internal/repository/postgres"
	"github.com/contacthub/contacthub-api/internal/service"
	transport "github.com/contacthub/contacthub-api/internal/transport/http"
	"github.com/contacthub/contacthub-api/internal/util"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("logstash mirror disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, writer))
		}
	}

	contacts, fields, users := buildRepos(ctx, cfg)

	ttl, err := time.ParseDuration(cfg.JWTTTL)
	if err != nil {
		log.Printf("invalid JWT_TTL %q, using 24h", cfg.JWTTTL)
		ttl = 24 * time.Hour
	}
	jwtManager := util.NewJWTManager(cfg.JWTSecret, ttl)
	auth := service.NewAuthService(users, jwtManager, cfg.GoogleAudience)

	fieldService := service.NewFieldService(fields)
	if err := fieldService.EnsureCoreFields(ctx); err != nil {
		log.Fatalf("seed core fields: %v", err)
	}

	resolver := service.NewDuplicateResolver(contacts)
	importer := service.NewContactImportService(contacts, resolver)

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Printf("upload retention disabled: %v", err)
		} else {
			storage = miniorepo.NewStorage(client)
		}
	}

	sessions := service.NewImportSessionService(fieldService, users, importer, storage, service.ImportSessionConfig{
		Bucket: cfg.MinIOBucket,
		ParseOpts: service.ParseOptions{
			MaxRows:        cfg.ImportMaxRows,
			SkipEmptyRows:  true,
			TrimWhitespace: true,
		},
	})

	e := transport.NewRouter(cfg.AllowOrigins)
	transport.RegisterSwagger(e, "docs")
	transport.RegisterAuth(e, auth)
	transport.RegisterImports(e, auth, sessions, cfg.ImportMaxBytes)
	transport.RegisterFields(e, auth, fieldService)
	transport.RegisterContacts(e, auth, contacts)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func buildRepos(ctx context.Context, cfg config.Config) (ports.ContactRepository, ports.FieldRepository, ports.UserRepository) {
	switch cfg.StoreBackend {
	case "firestore":
		client, err := fsrepo.New(ctx, cfg.FirestoreProject, cfg.FirestoreCreds)
		if err != nil {
			log.Fatalf("connect firestore: %v", err)
		}
		if err := fsrepo.Ping(ctx, client); err != nil {
			log.Fatalf("ping firestore: %v", err)
		}
		return fsrepo.NewContactRepo(client), fsrepo.NewFieldRepo(client), fsrepo.NewUserRepo(client)
	default:
		db, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("connect postgres: %v", err)
		}
		return postgres.NewContactRepo(db), postgres.NewFieldRepo(db), postgres.NewUserRepo(db)
	}
}
