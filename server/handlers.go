package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/line72/boldaric/engine"
	"github.com/line72/boldaric/log"
	"github.com/line72/boldaric/model"
)

type stationPayload struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	Options stationOptionsPayload `json:"options"`
}

type stationOptionsPayload struct {
	ReplaySongCooldown   int     `json:"replay_song_cooldown"`
	ReplayArtistDownrank float64 `json:"replay_artist_downrank"`
	IgnoreLive           bool    `json:"ignore_live"`
	Category             string  `json:"category"`
}

func toOptionsPayload(opts model.StationOptions) stationOptionsPayload {
	return stationOptionsPayload{
		ReplaySongCooldown:   opts.ReplaySongCooldown,
		ReplayArtistDownrank: opts.ReplayArtistDownrank,
		IgnoreLive:           opts.IgnoreLive,
		Category:             string(opts.Category),
	}
}

func toStationPayload(st model.Station) stationPayload {
	return stationPayload{
		ID:      st.ID,
		Name:    st.Name,
		Options: toOptionsPayload(st.Options),
	}
}

func (s *Server) handleListStations(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stations, err := s.stations.StationsForUser(r.Context(), user.ID)
	if err != nil {
		log.Error(r.Context(), "Could not list stations", err)
		writeError(w, httpStatus(err), "internal error")
		return
	}

	payload := make([]stationPayload, len(stations))
	for i, st := range stations {
		payload[i] = toStationPayload(st)
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": payload})
}

type createStationRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateStation(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createStationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	st, err := s.stations.CreateStation(r.Context(), user.ID, name)
	if err != nil {
		log.Error(r.Context(), "Could not create station", err)
		writeError(w, httpStatus(err), "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, toStationPayload(*st))
}

// station loads the path's station and checks ownership.
func (s *Server) station(w http.ResponseWriter, r *http.Request) (*model.Station, bool) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	st, err := s.stations.GetStation(r.Context(), user.ID, chi.URLParam(r, "stationID"))
	if err != nil {
		writeError(w, httpStatus(err), "station not found")
		return nil, false
	}
	return st, true
}

type nextSongResponse struct {
	SongID     string             `json:"song_id"`
	Artist     string             `json:"artist"`
	Title      string             `json:"title"`
	Album      string             `json:"album"`
	Similarity float64            `json:"similarity"`
	Components []componentPayload `json:"components,omitempty"`
}

type componentPayload struct {
	Name         string  `json:"name"`
	Similarity   float64 `json:"similarity"`
	Contribution float64 `json:"contribution"`
}

func toNextSongResponse(c engine.Candidate) nextSongResponse {
	resp := nextSongResponse{
		SongID:     c.ID,
		Artist:     c.Artist,
		Title:      c.Title,
		Album:      c.Album,
		Similarity: c.RawSimilarity,
	}
	for _, comp := range c.Components {
		resp.Components = append(resp.Components, componentPayload{
			Name:         comp.Name,
			Similarity:   comp.Similarity,
			Contribution: comp.Contribution,
		})
	}
	return resp
}

func (s *Server) handleNextSong(w http.ResponseWriter, r *http.Request) {
	st, ok := s.station(w, r)
	if !ok {
		return
	}

	pick, err := s.radio.NextTrack(r.Context(), st)
	if err != nil {
		log.Error(r.Context(), "Could not pick next song", "station", st.ID, err)
		writeError(w, httpStatus(err), "could not pick next song")
		return
	}
	if pick == nil {
		writeError(w, http.StatusNotFound, "no candidates available")
		return
	}
	writeJSON(w, http.StatusOK, toNextSongResponse(*pick))
}

type seedRequest struct {
	SongID string `json:"song_id"`
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	st, ok := s.station(w, r)
	if !ok {
		return
	}

	var req seedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	songID := strings.TrimSpace(req.SongID)
	if songID == "" {
		writeError(w, http.StatusBadRequest, "song_id is required")
		return
	}

	if err := s.radio.Seed(r.Context(), st.ID, songID); err != nil {
		writeError(w, httpStatus(err), "could not seed station")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleThumbsUp(w http.ResponseWriter, r *http.Request) {
	st, ok := s.station(w, r)
	if !ok {
		return
	}
	if err := s.radio.ThumbsUp(r.Context(), st.ID, chi.URLParam(r, "songID")); err != nil {
		writeError(w, httpStatus(err), "could not record rating")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleThumbsDown(w http.ResponseWriter, r *http.Request) {
	st, ok := s.station(w, r)
	if !ok {
		return
	}
	if err := s.radio.ThumbsDown(r.Context(), st.ID, chi.URLParam(r, "songID")); err != nil {
		writeError(w, httpStatus(err), "could not record rating")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	st, ok := s.station(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOptionsPayload(st.Options))
}

func (s *Server) handleSetOptions(w http.ResponseWriter, r *http.Request) {
	st, ok := s.station(w, r)
	if !ok {
		return
	}

	// Start from the current options so partial updates keep the rest.
	payload := toOptionsPayload(st.Options)
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	opts := model.StationOptions{
		ReplaySongCooldown:   payload.ReplaySongCooldown,
		ReplayArtistDownrank: payload.ReplayArtistDownrank,
		IgnoreLive:           payload.IgnoreLive,
		Category:             model.Category(payload.Category),
	}
	if opts.ReplaySongCooldown < 0 {
		writeError(w, http.StatusBadRequest, "replay_song_cooldown must be >= 0")
		return
	}
	if opts.ReplayArtistDownrank <= 0 || opts.ReplayArtistDownrank > 1 {
		writeError(w, http.StatusBadRequest, "replay_artist_downrank must be in (0, 1]")
		return
	}
	if !opts.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}

	if err := s.stations.SetStationOptions(r.Context(), st.ID, opts); err != nil {
		writeError(w, httpStatus(err), "could not update options")
		return
	}
	writeJSON(w, http.StatusOK, toOptionsPayload(opts))
}
