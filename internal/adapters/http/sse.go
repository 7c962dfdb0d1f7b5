package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kirillkom/relationship-assistant/internal/core/domain"
	"github.com/kirillkom/relationship-assistant/internal/core/ports"
)

// sseSink streams frames to the client as server-sent events. The done
// marker is emitted as the literal [DONE] sentinel rather than a JSON
// frame so generic SSE clients can detect end of stream.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming is not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseSink{w: w, flusher: flusher}, nil
}

func (s *sseSink) Emit(frame domain.StreamFrame) error {
	if frame.Type == domain.FrameDone {
		if _, err := io.WriteString(s.w, "data: [DONE]\n\n"); err != nil {
			return err
		}
		s.flusher.Flush()
		return nil
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// observe returns a sink that forwards every frame and reports it to the
// given callback after a successful write.
func (s *sseSink) observe(callback func(domain.StreamFrame)) ports.FrameSink {
	return &observingSink{inner: s, callback: callback}
}

type observingSink struct {
	inner    ports.FrameSink
	callback func(domain.StreamFrame)
}

func (s *observingSink) Emit(frame domain.StreamFrame) error {
	if err := s.inner.Emit(frame); err != nil {
		return err
	}
	if s.callback != nil {
		s.callback(frame)
	}
	return nil
}
