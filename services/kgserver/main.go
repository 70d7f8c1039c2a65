// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/AyurGraph/pkg/logging"
	"github.com/AleutianAI/AyurGraph/services/kgraph"
	"github.com/AleutianAI/AyurGraph/services/kgserver/config"
	"github.com/AleutianAI/AyurGraph/services/kgserver/observability"
	"github.com/AleutianAI/AyurGraph/services/kgserver/routes"
	"github.com/AleutianAI/AyurGraph/services/kgserver/services"
	"github.com/AleutianAI/AyurGraph/services/llm"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("kgserver")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Service: "kgserver",
		JSON:    true,
		LogDir:  cfg.LogDir,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Tracing is optional; without a collector the service still runs.
	if cfg.OTLPEndpoint != "" {
		cleanup, err := initTracer(cfg.OTLPEndpoint)
		if err != nil {
			log.Fatalf("failed to setup the OTLP tracer: %v", err)
		}
		defer cleanup(context.Background())
	} else {
		slog.Info("OTLP endpoint not set, trace export disabled")
	}

	store, err := kgraph.LoadFromFile(cfg.GraphPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load the knowledge graph: %v", err)
	}
	slog.Info("Knowledge graph loaded",
		"path", cfg.GraphPath,
		"entities", store.EntityCount(),
		"relations", store.RelationCount(),
		"droppedRows", store.DroppedRows(),
		"selfLoops", store.SelfLoopCount(),
	)

	engine := kgraph.NewEngine(store)
	if cfg.FuzzyThreshold > 0 {
		engine.Resolver.Threshold = cfg.FuzzyThreshold
	}
	if cfg.TraversalDepth > 0 {
		engine.Traverser.Depth = cfg.TraversalDepth
	}

	llmClient, err := llm.NewClient(cfg.LLMBackend)
	if err != nil {
		// The graph paths keep working without generation; answers
		// degrade to facts-only.
		slog.Warn("LLM client unavailable, answers will be facts-only",
			"backend", cfg.LLMBackend, "error", err)
		llmClient = nil
	}

	metrics := observability.InitMetrics()
	answers := services.NewAnswerService(engine, llmClient, cfg.LLMBackend,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second, metrics)

	router := gin.Default()
	router.Use(otelgin.Middleware("kgserver"))
	routes.SetupRoutes(router, store, answers)

	slog.Info("Starting the kgserver", "port", cfg.Port)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
