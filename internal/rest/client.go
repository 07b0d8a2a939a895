package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"tutorlink/internal/auth"
	"tutorlink/pkg/types"
)

// Client talks to the chat backend's REST surface. Read paths for history
// and notifications degrade to empty results instead of failing; lifecycle
// writes propagate errors so the UI can surface them.
type Client struct {
	baseURL string
	http    *http.Client
	auth    auth.Store
	logger  zerolog.Logger
}

// NewClient creates a REST client rooted at baseURL.
func NewClient(baseURL string, httpClient *http.Client, authStore auth.Store, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		auth:    authStore,
		logger:  logger.With().Str("component", "rest").Logger(),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.auth.Token()
	if err != nil {
		return nil, fmt.Errorf("no auth token available: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	return resp, nil
}

// statusError maps a non-2xx response to a sentinel-wrapped error.
func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusForbidden, http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrForbidden, resp.Status)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Status)
	default:
		return fmt.Errorf("%w: %s", ErrRequestFailed, resp.Status)
	}
}

// ListRooms fetches the caller's chat rooms.
func (c *Client) ListRooms(ctx context.Context) ([]types.Room, error) {
	resp, err := c.do(ctx, http.MethodGet, "/room/myRooms", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var rooms []types.Room
	if err := decodeList(data, &rooms); err != nil {
		c.logger.Warn().Err(err).Msg("unrecognized room list envelope")
		return []types.Room{}, nil
	}
	return rooms, nil
}

// GetRoom fetches one room by ID.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*types.Room, error) {
	resp, err := c.do(ctx, http.MethodGet, "/room/"+url.PathEscape(roomID), nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	var room types.Room
	if err := decodeObject(data, &room); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}
	return &room, nil
}

// DeleteRoom removes a room. A 404 means the room is already gone and is
// treated as success.
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/room/"+url.PathEscape(roomID), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().Str("room_id", roomID).Msg("room already deleted")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	return nil
}

// FetchHistory fetches one page of a room's message history, ascending by
// createdAt. Any failure or unrecognized envelope yields an empty page:
// partial history beats a crashed caller.
func (c *Client) FetchHistory(ctx context.Context, roomID string, pageNo, pageSize int) []types.Message {
	query := url.Values{
		"roomId":   {roomID},
		"pageNo":   {strconv.Itoa(pageNo)},
		"pageSize": {strconv.Itoa(pageSize)},
	}

	resp, err := c.do(ctx, http.MethodGet, "/room/message", query, nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("room_id", roomID).Msg("history fetch failed")
		return []types.Message{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("room_id", roomID).Msg("history fetch rejected")
		return []types.Message{}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Str("room_id", roomID).Msg("history read failed")
		return []types.Message{}
	}

	var messages []types.Message
	if err := decodeList(data, &messages); err != nil {
		c.logger.Warn().Err(err).Str("room_id", roomID).Msg("unrecognized history envelope")
		return []types.Message{}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages
}

// SubmitRoom transitions a room IN_PROGRESS -> SUBMITTED. Tutor only; the
// backend is the source of truth and may reject with ErrForbidden.
func (c *Client) SubmitRoom(ctx context.Context, roomID string) error {
	return c.lifecycleWrite(ctx, roomID, "submit")
}

// ConfirmRoom transitions a room SUBMITTED -> CONFIRMED. Student only.
func (c *Client) ConfirmRoom(ctx context.Context, roomID string) error {
	return c.lifecycleWrite(ctx, roomID, "confirm")
}

func (c *Client) lifecycleWrite(ctx context.Context, roomID, action string) error {
	resp, err := c.do(ctx, http.MethodPost, "/room/"+url.PathEscape(roomID)+"/"+action, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	return nil
}

// FetchNotifications fetches one page of a user's notifications. This
// endpoint is known to be unreliable, so failures degrade to an empty page.
func (c *Client) FetchNotifications(ctx context.Context, userID string, pageNo, pageSize int) []types.Notification {
	query := url.Values{
		"userId":   {userID},
		"pageNo":   {strconv.Itoa(pageNo)},
		"pageSize": {strconv.Itoa(pageSize)},
	}

	resp, err := c.do(ctx, http.MethodGet, "/notification", query, nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("notification fetch failed")
		return []types.Notification{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("notification fetch rejected")
		return []types.Notification{}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn().Err(err).Msg("notification read failed")
		return []types.Notification{}
	}

	var notifications []types.Notification
	if err := decodeList(data, &notifications); err != nil {
		c.logger.Warn().Err(err).Msg("unrecognized notification envelope")
		return []types.Notification{}
	}
	return notifications
}
