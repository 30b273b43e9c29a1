package routes

import (
	"encoding/json"
	"net/http"

	"vidpress/credentials"
	"vidpress/logger"
	"vidpress/utils"
)

// RegisterCredentialsHandler stores storage backend credentials and
// returns the generated access key for them
func RegisterCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	keyString, err := utils.GenerateRandomHex(16)
	if err != nil {
		logger.Errorf("Failed to generate access key: %v", err)
		http.Error(w, "Failed to generate key", http.StatusInternalServerError)
		return
	}

	credsBody := make(map[string]string)
	if err := json.NewDecoder(r.Body).Decode(&credsBody); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := credentials.StoreCredentials(keyString, credsBody); err != nil {
		logger.Errorf("Failed to store credentials: %v", err)
		http.Error(w, "Failed to store credentials", http.StatusInternalServerError)
		return
	}

	logger.Infof("Registered credentials under key %s", keyString)

	response := map[string]string{
		"access_key": keyString,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode register response: %v", err)
	}
}
