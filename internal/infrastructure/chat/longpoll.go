package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
)

// LongPollSource fetches chat updates from a gateway over HTTP long polling.
// It tracks the last confirmed update id and passes it as an offset so the
// gateway only returns newer updates. Implements ports.UpdateSource.
type LongPollSource struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
	offset  int64
}

type gatewayResponse struct {
	OK      bool            `json:"ok"`
	Updates []gatewayUpdate `json:"updates"`
}

type gatewayUpdate struct {
	UpdateID int64  `json:"update_id"`
	ChatID   string `json:"chat_id"`
	Platform string `json:"platform"`
	Text     string `json:"text"`
}

func NewLongPollSource(gatewayURL string, requestTimeout time.Duration, log *logger.Logger) *LongPollSource {
	return &LongPollSource{
		baseURL: gatewayURL,
		client:  &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

// Poll performs one long-poll round trip. An empty batch is a normal outcome,
// not an error.
func (s *LongPollSource) Poll(ctx context.Context) ([]ports.ChatUpdate, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("gateway url: %w", err)
	}
	q := u.Query()
	q.Set("offset", strconv.FormatInt(s.offset+1, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gateway poll: unexpected status %d", resp.StatusCode)
	}

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("gateway response: %w", err)
	}
	if !body.OK {
		return nil, fmt.Errorf("gateway response: not ok")
	}

	updates := make([]ports.ChatUpdate, 0, len(body.Updates))
	for _, gu := range body.Updates {
		if gu.UpdateID > s.offset {
			s.offset = gu.UpdateID
		}
		updates = append(updates, ports.ChatUpdate{
			UpdateID: strconv.FormatInt(gu.UpdateID, 10),
			ChatID:   gu.ChatID,
			Platform: gu.Platform,
			Text:     gu.Text,
		})
	}
	return updates, nil
}
