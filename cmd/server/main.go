package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dhaba-pos/api/internal/config"
	"github.com/dhaba-pos/api/internal/notify"
	"github.com/dhaba-pos/api/internal/router"
	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Order events always reach connected displays; RabbitMQ is an optional
	// second leg for external consumers.
	sink := notify.Fanout{hub}
	if cfg.AMQPURL != "" {
		mq, err := notify.DialAMQP(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Unable to connect to AMQP broker: %v", err)
		}
		defer mq.Close()
		sink = append(sink, mq)
		log.Println("Connected to AMQP broker")
	}

	queries := store.New(pool)
	r := router.New(cfg, queries, pool, hub, sink)

	log.Printf("Starting server on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
