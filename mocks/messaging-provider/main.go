package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8082"
	defaultLatencyMs = "50"
	maxRecorded      = 500
)

// Message is one delivery accepted by the stub, from either API.
type Message struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	To         string    `json:"to"`
	From       string    `json:"from"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type sendgridMail struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

var (
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu       sync.Mutex
	messages []Message
	seq      int
)

// Magic recipients let e2e scenarios drive provider failures.
var (
	rejectedRecipients = map[string]bool{
		"+15550000400":       true,
		"bounce@example.com": true,
	}
	failingRecipients = map[string]bool{
		"+15550000500":     true,
		"down@example.com": true,
	}
)

func main() {
	port := getEnv("PORT", defaultPort)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /2010-04-01/Accounts/{sid}/Messages.json", handleTwilio)
	mux.HandleFunc("POST /v3/mail/send", handleSendGrid)
	mux.HandleFunc("GET /messages", handleList)
	mux.HandleFunc("DELETE /messages", handleReset)

	log.Printf("Mock messaging provider starting on port %s", port)
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "messaging-provider",
	})
}

func handleTwilio(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	if _, _, ok := r.BasicAuth(); !ok {
		writeJSON(w, http.StatusUnauthorized, twilioError{Code: 20003, Message: "Authenticate", Status: 401})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, twilioError{Code: 21602, Message: "Message body is required.", Status: 400})
		return
	}

	to := r.PostForm.Get("To")
	switch {
	case rejectedRecipients[to]:
		writeJSON(w, http.StatusBadRequest, twilioError{
			Code:    21211,
			Message: fmt.Sprintf("The 'To' number %s is not a valid phone number.", to),
			Status:  400,
		})
		return
	case failingRecipients[to]:
		writeJSON(w, http.StatusServiceUnavailable, twilioError{Code: 20503, Message: "Service unavailable", Status: 503})
		return
	}

	msg := record(Message{
		Channel: "sms",
		To:      to,
		From:    r.PostForm.Get("From"),
		Body:    r.PostForm.Get("Body"),
	}, "SM")
	log.Printf("sms %s -> %s", msg.ID, to)
	writeJSON(w, http.StatusCreated, map[string]string{"sid": msg.ID, "status": "queued"})
}

func handleSendGrid(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"errors":[{"message":"The provided authorization grant is invalid, expired, or revoked"}]}`, http.StatusUnauthorized)
		return
	}
	var mail sendgridMail
	if err := json.NewDecoder(r.Body).Decode(&mail); err != nil {
		http.Error(w, `{"errors":[{"message":"Bad Request"}]}`, http.StatusBadRequest)
		return
	}
	if len(mail.Personalizations) == 0 || len(mail.Personalizations[0].To) == 0 {
		http.Error(w, `{"errors":[{"message":"The to array is required"}]}`, http.StatusBadRequest)
		return
	}

	to := mail.Personalizations[0].To[0].Email
	switch {
	case rejectedRecipients[to]:
		http.Error(w, `{"errors":[{"message":"Does not contain a valid address."}]}`, http.StatusBadRequest)
		return
	case failingRecipients[to]:
		http.Error(w, "", http.StatusServiceUnavailable)
		return
	}

	body := ""
	for _, c := range mail.Content {
		if c.Type == "text/plain" {
			body = c.Value
		}
	}
	msg := record(Message{
		Channel: "email",
		To:      to,
		From:    mail.From.Email,
		Subject: mail.Subject,
		Body:    body,
	}, "SG")
	log.Printf("email %s -> %s", msg.ID, to)
	w.Header().Set("X-Message-Id", msg.ID)
	w.WriteHeader(http.StatusAccepted)
}

// handleList returns recorded messages, newest first, optionally filtered by recipient.
func handleList(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")

	mu.Lock()
	out := make([]Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		if to == "" || messages[i].To == to {
			out = append(out, messages[i])
		}
	}
	mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"messages": out, "total": len(out)})
}

func handleReset(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	messages = nil
	mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func record(m Message, prefix string) Message {
	mu.Lock()
	defer mu.Unlock()
	seq++
	m.ID = fmt.Sprintf("%s%032d", prefix, seq)
	m.ReceivedAt = time.Now().UTC()
	messages = append(messages, m)
	if len(messages) > maxRecorded {
		messages = messages[len(messages)-maxRecorded:]
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
