package main

import (
	"net/http"
)

func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	admin, _ := a.sessions.AdminFromContext(r.Context())
	renderHTML(w, dashboardTemplate, dashboardPage{Admin: admin}, http.StatusOK)
}
