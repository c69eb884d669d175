package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/teslashibe/go-ev3panel/internal/httpc"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// HTTPController implements Controller over the robot's REST API.
type HTTPController struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures an HTTPController.
type Option func(*HTTPController)

// WithHTTPClient overrides the shared httpc client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPController) {
		h.client = c
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(h *HTTPController) {
		h.logger = l
	}
}

// NewHTTPController creates a client for the API rooted at baseURL ("http://192.168.1.20").
func NewHTTPController(baseURL string, opts ...Option) *HTTPController {
	h := &HTTPController{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.Client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// BaseURL returns the API root.
func (h *HTTPController) BaseURL() string {
	return h.baseURL
}

// Move starts a movement in direction at speed percent (0-100, 0 stops).
func (h *HTTPController) Move(ctx context.Context, direction string, speed int) error {
	if !ValidDirection(direction) {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	speed = clampInt(speed, 0, 100)

	_, err := h.post(ctx, fmt.Sprintf("/api/movement/%s/%d", direction, speed), nil, "")
	return err
}

// KillSwitch stops every motor.
func (h *HTTPController) KillSwitch(ctx context.Context) error {
	_, err := h.post(ctx, "/api/motor/killswitch", nil, "")
	return err
}

// SetMotorSpeed runs one or several motors ("A", "BC") at duty percent (-100..100).
// The returned messages report the outcome per motor.
func (h *HTTPController) SetMotorSpeed(ctx context.Context, addresses string, duty int) ([]string, error) {
	addresses = strings.ToUpper(addresses)
	if addresses == "" || strings.Trim(addresses, "ABCD") != "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addresses)
	}
	duty = clampInt(duty, -100, 100)

	resp, err := h.post(ctx, fmt.Sprintf("/api/motor/%s/%d", addresses, duty), nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// MotorStatus queries the state and duty cycle of the motor at address (outA..outD).
func (h *HTTPController) MotorStatus(ctx context.Context, address string) (MotorStatus, error) {
	if !validPort(address) {
		return MotorStatus{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	var status MotorStatus
	if err := h.do(ctx, http.MethodGet, "/api/motor/"+address, nil, "", &status); err != nil {
		return MotorStatus{}, err
	}
	return status, nil
}

// SetMovementConfig binds the movement sides to motor ports. The config is
// forwarded without validation.
func (h *HTTPController) SetMovementConfig(ctx context.Context, cfg MovementConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal movement config: %w", err)
	}
	_, err = h.post(ctx, "/api/movement/config", bytes.NewReader(data), "application/json")
	return err
}

// AddSound uploads a wav file and returns its id.
func (h *HTTPController) AddSound(ctx context.Context, filename string, data []byte) (int, error) {
	return h.upload(ctx, "/api/sound", filename, data)
}

// PlaySound plays a previously uploaded sound.
func (h *HTTPController) PlaySound(ctx context.Context, id int) error {
	_, err := h.post(ctx, "/api/sound/"+strconv.Itoa(id), nil, "")
	return err
}

// Speak runs text-to-speech on the robot.
func (h *HTTPController) Speak(ctx context.Context, text string) error {
	_, err := h.post(ctx, "/api/sound/tts/"+url.PathEscape(text), nil, "")
	return err
}

// AddImage uploads a bitmap and returns its id.
func (h *HTTPController) AddImage(ctx context.Context, filename string, data []byte) (int, error) {
	return h.upload(ctx, "/api/image", filename, data)
}

// DisplayImage shows an uploaded image for seconds (0 = indefinitely).
func (h *HTTPController) DisplayImage(ctx context.Context, id int, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	_, err := h.post(ctx, fmt.Sprintf("/api/image/%d/%d", id, seconds), nil, "")
	return err
}

// upload posts data as the multipart field "upload".
func (h *HTTPController) upload(ctx context.Context, path, filename string, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyPayload
	}
	if filename == "" {
		filename = "upload"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("upload", filename)
	if err != nil {
		return 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, fmt.Errorf("failed to write upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("failed to close multipart body: %w", err)
	}

	resp, err := h.post(ctx, path, &body, mw.FormDataContentType())
	if err != nil {
		return 0, err
	}
	if resp.ID == nil {
		return 0, fmt.Errorf("robot: %s: response has no id", path)
	}
	return *resp.ID, nil
}

func (h *HTTPController) post(ctx context.Context, path string, body io.Reader, contentType string) (*Response, error) {
	var resp Response
	if err := h.do(ctx, http.MethodPost, path, body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one request and decodes a JSON response into out.
func (h *HTTPController) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	h.logger.Debug("robot api", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(path, resp.StatusCode, data)
	}
	if len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func newAPIError(path string, status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Path: path}

	var r Response
	if err := json.Unmarshal(body, &r); err == nil {
		switch {
		case r.Message != "":
			apiErr.Message = r.Message
		case len(r.Messages) > 0:
			apiErr.Message = strings.Join(r.Messages, "; ")
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func validPort(address string) bool {
	switch address {
	case "outA", "outB", "outC", "outD":
		return true
	}
	return false
}
