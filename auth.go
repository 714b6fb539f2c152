package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
)

func generateSecretCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// authenticateWS resolves the player identity for a WebSocket
// handshake from the name and code query parameters. An unknown name
// registers on the spot; the greeting carries the fresh secret code so
// the player can reconnect later.
func authenticateWS(r *http.Request) (userID, greeting string, err error) {
	name := r.URL.Query().Get("name")
	code := r.URL.Query().Get("code")
	if name == "" {
		return "", "", errors.New("name required")
	}

	var stored string
	err = db.Get(&stored, "SELECT secret_code FROM player WHERE name = ?", name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fresh, err := registerPlayer(name)
		if err != nil {
			logError("authenticateWS: register", err)
			return "", "", errors.New("registration failed")
		}
		log.Printf("New player registered: name=%q", name)
		LogDBState("after registration: " + name)
		return name, fmt.Sprintf("Welcome, %s. Your secret code is %s — keep it to reconnect.", name, fresh), nil
	case err != nil:
		logError("authenticateWS: lookup", err)
		return "", "", errors.New("lookup failed")
	}

	if stored != code {
		DebugLog("authenticateWS", "wrong secret code for %s", name)
		return "", "", errors.New("wrong secret code")
	}
	return name, "", nil
}
