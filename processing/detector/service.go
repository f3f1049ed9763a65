package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"
	"sync"
	"time"

	"platescan/internal/models"

	"github.com/gorilla/websocket"
)

// wireResult is what the detection server sends back per object. Box holds
// normalised y1, x1, y2, x2.
type wireResult struct {
	Label      string    `json:"label"`
	ClassID    *int      `json:"class_id,omitempty"`
	Confidence float32   `json:"confidence"`
	Box        []float32 `json:"box"`
}

// RemoteDetector ships JPEG frames to a detection server over a websocket and
// reads one JSON array of results per frame.
type RemoteDetector struct {
	serverURL string
	timeout   time.Duration

	conn *websocket.Conn
	mu   sync.Mutex
}

func NewRemoteDetector(host string, timeout time.Duration) *RemoteDetector {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	return &RemoteDetector{
		serverURL: u.String(),
		timeout:   timeout,
	}
}

func (d *RemoteDetector) URL() string { return d.serverURL }

func (d *RemoteDetector) connect(ctx context.Context) (*websocket.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to detector server %s: %w", d.serverURL, err)
	}
	d.conn = conn
	return conn, nil
}

func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, conf float32) ([]models.DetectionResult, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("JPEG encode error: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		d.reset()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		d.reset()
		return nil, fmt.Errorf("read results: %w", err)
	}

	var results []wireResult
	if err := json.Unmarshal(message, &results); err != nil {
		return nil, fmt.Errorf("JSON decode error: %w", err)
	}

	b := img.Bounds()
	imgWidth := float32(b.Dx())
	imgHeight := float32(b.Dy())

	dets := make([]models.DetectionResult, 0, len(results))
	for _, res := range results {
		if len(res.Box) < 4 || res.Confidence < conf {
			continue
		}
		y1 := res.Box[0] * imgHeight
		x1 := res.Box[1] * imgWidth
		y2 := res.Box[2] * imgHeight
		x2 := res.Box[3] * imgWidth

		classID := classIDFor(res.Label)
		if res.ClassID != nil {
			classID = *res.ClassID
		}
		dets = append(dets, models.DetectionResult{
			Label:      res.Label,
			ClassID:    classID,
			Confidence: res.Confidence,
			Box:        clipBox([4]float32{x1, y1, x2, y2}, b.Dx(), b.Dy()),
		})
	}
	return dets, nil
}

func (d *RemoteDetector) reset() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

func (d *RemoteDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	d.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := d.conn.Close()
	d.conn = nil
	return err
}
