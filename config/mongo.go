package config

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient holds voice session records and their event logs.
var MongoClient *mongo.Client

// InitMongo connects and pings MongoDB.
func InitMongo(ctx context.Context, cfg *App) error {
	if cfg.MongoURI == "" {
		return errors.New("MONGO_URI environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoOptions(cfg))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return err
	}

	MongoClient = client
	return nil
}

func mongoOptions(cfg *App) *options.ClientOptions {
	opts := options.Client().ApplyURI(cfg.MongoURI).
		SetAppName("docuvoice").
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	// Atlas rejects the Go 1.24 default handshake on some tiers.
	if cfg.MongoForceTLS12 {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: cfg.MongoInsecureTLS,
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS12,
		})
	}
	return opts
}

// MongoDatabase returns the application database. InitMongo must have succeeded.
func MongoDatabase(cfg *App) *mongo.Database {
	name := cfg.MongoDB
	if name == "" {
		name = "docuvoice"
	}
	return MongoClient.Database(name)
}
