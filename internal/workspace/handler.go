package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reverseDesignAi/internal/design"
	"reverseDesignAi/internal/events"
)

const heartbeatInterval = 30 * time.Second

// Handler exposes sessions over HTTP.
type Handler struct {
	Service *Service
	Broker  *events.Broker
	Logger  *zap.Logger
}

// Routes mounts the session endpoints under the caller's prefix.
func (h Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/images", h.addImages)
		r.Delete("/images", h.clearImages)
		r.Delete("/images/{index}", h.removeImage)
		r.Post("/images/{index}/move", h.moveImage)
		r.Put("/text", h.setText)
		r.Post("/analyze", h.analyze)
		r.Post("/split", h.split)
		r.Post("/generate", h.generate)
		r.Get("/events", h.stream)
	})
}

func (h Handler) create(w http.ResponseWriter, _ *http.Request) {
	design.WriteJSON(w, http.StatusCreated, h.Service.Create())
}

func (h Handler) get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Get(chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

func (h Handler) addImages(w http.ResponseWriter, r *http.Request) {
	images, err := design.ReadImages(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	sess, report, err := h.Service.AddImages(chi.URLParam(r, "id"), images)
	if err != nil {
		h.fail(w, err)
		return
	}
	design.WriteJSON(w, http.StatusOK, map[string]any{"session": sess, "report": report})
}

func (h Handler) clearImages(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.ClearImages(chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

func (h Handler) removeImage(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	sess, err := h.Service.RemoveImage(chi.URLParam(r, "id"), index)
	h.respond(w, sess, err)
}

func (h Handler) moveImage(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var body struct {
		Direction Direction `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, &design.RequestError{Msg: "invalid request body", Err: err})
		return
	}
	if body.Direction != Left && body.Direction != Right {
		h.fail(w, &design.RequestError{Msg: `direction must be "left" or "right"`})
		return
	}
	sess, err := h.Service.MoveImage(chi.URLParam(r, "id"), index, body.Direction)
	h.respond(w, sess, err)
}

func (h Handler) setText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, &design.RequestError{Msg: "invalid request body", Err: err})
		return
	}
	sess, err := h.Service.SetContentText(chi.URLParam(r, "id"), body.Text)
	h.respond(w, sess, err)
}

func (h Handler) analyze(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Analyze(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

func (h Handler) split(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Split(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

func (h Handler) generate(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Generate(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, sess, err)
}

// stream handles GET /{id}/events as server-sent events. The current state
// is sent first, then every change until the client goes away.
func (h Handler) stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.Service.Get(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.Broker.Subscribe(id)
	defer h.Broker.Unsubscribe(sub)

	var eventID uint64
	send := func(name string, data any) error {
		eventID++
		return writeSSE(w, flusher, eventID, name, data)
	}
	if err := send("state", events.Event{SessionID: sess.ID, State: string(sess.State), Error: sess.Err, At: sess.UpdatedAt}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := send("heartbeat", map[string]any{}); err != nil {
				return
			}
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if err := send("state", evt); err != nil {
				h.logger().Debug("sse client gone", zap.String("session", id), zap.Error(err))
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, id uint64, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", name, id, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}

func indexParam(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, &design.RequestError{Msg: "image index must be an integer", Err: err}
	}
	return index, nil
}

func (h Handler) respond(w http.ResponseWriter, sess Session, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	design.WriteJSON(w, http.StatusOK, sess)
}

func (h Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		design.WriteJSON(w, http.StatusNotFound, design.ErrorBody{Error: err.Error()})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNoImages), errors.Is(err, ErrNoAnalysis):
		design.WriteJSON(w, http.StatusConflict, design.ErrorBody{Error: err.Error()})
	case errors.Is(err, ErrIndexOutOfRange):
		design.WriteJSON(w, http.StatusBadRequest, design.ErrorBody{Error: err.Error()})
	default:
		if status := design.WriteError(w, err); status >= http.StatusInternalServerError {
			h.logger().Error("session request failed", zap.Int("status", status), zap.Error(err))
		}
	}
}

func (h Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
