package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"knowledge-race/internal/app"
	"knowledge-race/internal/domain"
)

const qrSize = 320

// RouterOptions configures the presentation API.
type RouterOptions struct {
	// PublicURL is the board front-end base. Match QR codes encode
	// PublicURL/<matchID>. When empty they fall back to this server's
	// /matches/<matchID> snapshot, which is JSON and not a board page.
	PublicURL      string
	AllowedOrigins []string
}

// API exposes the moderator use cases over REST.
type API struct {
	service   *app.GameService
	publicURL string
}

// NewRouter registers every route and wraps the router with CORS.
func NewRouter(service *app.GameService, opts RouterOptions) http.Handler {
	api := &API{service: service, publicURL: strings.TrimSuffix(opts.PublicURL, "/")}
	ws := NewWSHandler(service)

	mux := httprouter.New()
	mux.GET("/healthz", serveHealthCheck)

	mux.POST("/matches", api.createMatch)
	mux.GET("/matches/:id", api.getMatch)
	mux.DELETE("/matches/:id", api.deleteMatch)

	mux.POST("/matches/:id/teams", api.addTeam)
	mux.PATCH("/matches/:id/teams/:teamId", api.updateTeam)
	mux.DELETE("/matches/:id/teams/:teamId", api.removeTeam)

	mux.POST("/matches/:id/start", api.startMatch)
	mux.POST("/matches/:id/answers", api.selectAnswer)
	mux.POST("/matches/:id/reveal", api.forceReveal)
	mux.POST("/matches/:id/confirm", api.confirmResults)
	mux.POST("/matches/:id/advance", api.advance)
	mux.POST("/matches/:id/restart", api.restart)

	mux.GET("/matches/:id/qr", api.qrCode)
	mux.GET("/matches/:id/ws", ws.ServeWS)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func serveHealthCheck(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type createMatchRequest struct {
	Teams []domain.Team `json:"teams"`
}

type teamRequest struct {
	Name    string `json:"name"`
	Members string `json:"members"`
}

type startRequest struct {
	Count int `json:"count"`
}

type answerRequest struct {
	TeamID      string `json:"teamId"`
	OptionIndex int    `json:"optionIndex"`
}

type answerResponse struct {
	Accepted bool                 `json:"accepted"`
	Match    domain.MatchSnapshot `json:"match"`
}

type confirmResponse struct {
	Results []domain.RoundResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) createMatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createMatchRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	snap, err := a.service.CreateMatch(r.Context(), req.Teams)
	respond(w, http.StatusCreated, snap, err)
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, err := a.service.Snapshot(r.Context(), ps.ByName("id"))
	respond(w, http.StatusOK, snap, err)
}

func (a *API) deleteMatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := a.service.DeleteMatch(r.Context(), ps.ByName("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) addTeam(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var team domain.Team
	if !decode(w, r, &team) {
		return
	}
	if strings.TrimSpace(team.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "team name is required"})
		return
	}
	snap, err := a.service.AddTeam(r.Context(), ps.ByName("id"), team)
	respond(w, http.StatusCreated, snap, err)
}

func (a *API) updateTeam(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req teamRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := a.service.UpdateTeam(r.Context(), ps.ByName("id"), ps.ByName("teamId"), req.Name, req.Members)
	respond(w, http.StatusOK, snap, err)
}

func (a *API) removeTeam(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, err := a.service.RemoveTeam(r.Context(), ps.ByName("id"), ps.ByName("teamId"))
	respond(w, http.StatusOK, snap, err)
}

func (a *API) startMatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req startRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	snap, err := a.service.StartMatch(r.Context(), ps.ByName("id"), req.Count)
	respond(w, http.StatusOK, snap, err)
}

func (a *API) selectAnswer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	snap, accepted, err := a.service.SelectAnswer(r.Context(), ps.ByName("id"), req.TeamID, req.OptionIndex)
	respond(w, http.StatusOK, answerResponse{Accepted: accepted, Match: snap}, err)
}

func (a *API) forceReveal(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, err := a.service.ForceReveal(r.Context(), ps.ByName("id"))
	respond(w, http.StatusOK, snap, err)
}

func (a *API) confirmResults(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	results, err := a.service.ConfirmResults(r.Context(), ps.ByName("id"))
	respond(w, http.StatusOK, confirmResponse{Results: results}, err)
}

func (a *API) advance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, err := a.service.Advance(r.Context(), ps.ByName("id"))
	respond(w, http.StatusOK, snap, err)
}

func (a *API) restart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	snap, err := a.service.Restart(r.Context(), ps.ByName("id"))
	respond(w, http.StatusOK, snap, err)
}

// qrCode renders a PNG QR code pointing at the match board.
func (a *API) qrCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	matchID := ps.ByName("id")
	if _, err := a.service.Snapshot(r.Context(), matchID); err != nil {
		writeError(w, err)
		return
	}

	png, err := qrcode.Encode(a.boardURL(r, matchID), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("qr generation failed")
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// boardURL is the address a scanned QR code opens.
func (a *API) boardURL(r *http.Request, matchID string) string {
	if a.publicURL != "" {
		return a.publicURL + "/" + url.PathEscape(matchID)
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/matches/" + url.PathEscape(matchID)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decode(w, r, dst)
}

func respond(w http.ResponseWriter, status int, body any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMatchNotFound), errors.Is(err, domain.ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTeam),
		errors.Is(err, domain.ErrMatchInProgress),
		errors.Is(err, domain.ErrMatchNotPlaying),
		errors.Is(err, domain.ErrMatchFinished),
		errors.Is(err, domain.ErrRoundNotRevealed),
		errors.Is(err, domain.ErrRoundSubmitted),
		errors.Is(err, domain.ErrRoundPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoQuestions), errors.Is(err, domain.ErrMalformedQuestion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
