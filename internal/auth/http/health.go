package http

import (
	"net/http"

	"github.com/aussiebroadwan/mcpauth/pkg/authsdk"
	"github.com/aussiebroadwan/mcpauth/pkg/httpx"
)

// ServiceName is reported by GET /info.
const ServiceName = "mcpauth"

// HealthHandler godoc
//
//	@Summary		Service Status
//	@Description	Returns a static status with the environment name and version.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.StatusResponse
//	@Router			/health [get]
func HealthHandler(environment, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{
			Status:      "healthy",
			Environment: environment,
			Version:     version,
		})
	}
}

// InfoHandler godoc
//
//	@Summary		Service Information
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.InfoResponse
//	@Router			/info [get]
func InfoHandler(environment, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.InfoResponse{
			Name:        ServiceName,
			Version:     version,
			Description: "OAuth 2.0 authorization server for MCP clients",
			Environment: environment,
		})
	}
}
