/* Copyright 2025 Bauhub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package middleware provides the HTTP middleware chain and the response
// helpers shared by the handlers
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/bauhub/bauhub/pkg/server/log"
)

// DoError logs the given error and responds with the given status code
func DoError(w http.ResponseWriter, msg string, err error, statusCode int) {
	log.WithFields(log.Fields{
		"statusCode": statusCode,
		"err":        err,
	}).Error(msg)

	respondError(w, msg, statusCode)
}

// RespondJSON sets a JSON response with the given payload
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		DoError(w, "encoding response", err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}

// RespondUnauthorized sets an unauthorized response
func RespondUnauthorized(w http.ResponseWriter) {
	respondError(w, "unauthorized", http.StatusUnauthorized)
}

// RespondForbidden sets a forbidden response
func RespondForbidden(w http.ResponseWriter) {
	respondError(w, "forbidden", http.StatusForbidden)
}

// RespondNotFound sets a not found response
func RespondNotFound(w http.ResponseWriter) {
	respondError(w, "not found", http.StatusNotFound)
}

// RespondInvalidParams sets a response for a malformed request payload
func RespondInvalidParams(w http.ResponseWriter, msg string) {
	respondError(w, msg, http.StatusBadRequest)
}

func respondError(w http.ResponseWriter, msg string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.ErrorWrap(err, "encoding error response")
	}
}

// NotSupported is the handler for unsupported API versions
func NotSupported(w http.ResponseWriter, r *http.Request) {
	respondError(w, "API version is not supported. Please upgrade your client.", http.StatusGone)
}
