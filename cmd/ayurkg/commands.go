// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AyurGraph/services/kgserver/datatypes"
)

// ====== Command flags ======

var (
	serverURL  string
	jsonOutput bool
)

var httpClient = &http.Client{
	Timeout: 120 * time.Second,
}

// ====== Command definitions ======

var (
	rootCmd = &cobra.Command{
		Use:   "ayurkg",
		Short: "A CLI for the AyurGraph knowledge-graph chat service",
		Long: `AyurGraph answers wellness questions from a curated Ayurvedic
knowledge graph, grounding generated answers in graph facts.`,
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a question to the knowledge-graph chat service",
		Long:  `Sends a question to the kgserver, which resolves entities in the knowledge graph, retrieves their relations, and composes a grounded answer.`,
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand,
	}

	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Fetches the full knowledge graph visualization payload",
		Run:   runGraphCommand,
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Checks the kgserver and reports graph statistics",
		Run:   runHealthCommand,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000",
		"Base URL of the kgserver")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output raw JSON for scripting")
	rootCmd.AddCommand(askCmd, graphCmd, healthCmd)
}

// ====== Command implementations ======

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")

	body, err := json.Marshal(datatypes.ChatRequest{Query: question})
	if err != nil {
		fatalf("Failed to encode request: %v", err)
	}

	resp, err := httpClient.Post(serverURL+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		fatalf("Server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	var chat datatypes.ChatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		fatalf("Failed to decode response: %v", err)
	}

	fmt.Println(chat.Response)
	fmt.Printf("\n[source: %s, confidence: %s]\n", chat.Source, chat.Confidence)
	if chat.KGData != nil && len(chat.KGData.Entities) > 0 {
		matched := make([]string, 0, len(chat.KGData.Entities))
		for _, e := range chat.KGData.Entities {
			matched = append(matched, fmt.Sprintf("%s (%.2f)", e.Label, e.Score))
		}
		fmt.Printf("[matched: %s]\n", strings.Join(matched, ", "))
	}
}

func runGraphCommand(cmd *cobra.Command, args []string) {
	resp, err := httpClient.Get(serverURL + "/api/kg/full")
	if err != nil {
		fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		fatalf("Server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	var payload struct {
		Nodes []struct {
			Label string `json:"label"`
			Group string `json:"group"`
		} `json:"nodes"`
		Edges []struct {
			Label string `json:"label"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		fatalf("Failed to decode response: %v", err)
	}

	groups := make(map[string]int)
	for _, n := range payload.Nodes {
		groups[n.Group]++
	}
	fmt.Printf("Graph: %d nodes, %d edges\n", len(payload.Nodes), len(payload.Edges))
	for group, count := range groups {
		fmt.Printf("  %s: %d\n", group, count)
	}
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	resp, err := httpClient.Get(serverURL + "/health")
	if err != nil {
		fatalf("kgserver unreachable: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatalf("Failed to read response: %v", err)
	}

	if jsonOutput {
		fmt.Println(string(data))
		return
	}

	var health struct {
		Status    string `json:"status"`
		Entities  int    `json:"entities"`
		Relations int    `json:"relations"`
	}
	if err := json.Unmarshal(data, &health); err != nil {
		fatalf("Failed to decode response: %v", err)
	}
	fmt.Printf("Status: %s\nEntities: %d\nRelations: %d\n",
		health.Status, health.Entities, health.Relations)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
