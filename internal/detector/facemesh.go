package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	faceMeshScript = "facemesh_service.py"

	// idleShutdown stops the Python process after this long without frames.
	idleShutdown = 30 * time.Second
)

// FaceMeshDetector implements Detector using a Python MediaPipe FaceMesh subprocess.
//
// Protocol: after start the service writes a {"ready":true} line. Each frame
// is then written to stdin as a 4-byte big-endian length followed by JPEG
// bytes; the service answers with one JSON line
// {"faces":[{"points":[{"x":..,"y":..,"z":..}],"score":..}]}.
type FaceMeshDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	lastUsed   time.Time
	idleTimer  *time.Timer
}

// NewFaceMeshDetector creates a new FaceMesh detector.
// The Python process is started lazily on first detection, or eagerly by Start.
func NewFaceMeshDetector(config Config) (*FaceMeshDetector, error) {
	scriptPath := findScript(faceMeshScript)
	if scriptPath == "" {
		return nil, fmt.Errorf("%w: %s not found", ErrUnavailable, faceMeshScript)
	}

	return &FaceMeshDetector{
		config:     config.Normalize(),
		scriptPath: scriptPath,
	}, nil
}

// Config returns the effective detector configuration.
func (d *FaceMeshDetector) Config() Config {
	return d.config
}

// Start launches the subprocess so that initialization failures surface
// before the first frame.
func (d *FaceMeshDetector) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureStarted(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	d.resetIdleTimer()
	return nil
}

// Detect analyzes a frame and returns detected face landmarks.
func (d *FaceMeshDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	// A broken pipe leaves the service in an unknown state; restart it on
	// the next frame.
	if _, err := d.stdin.Write(length); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	faces, err := parseResponse([]byte(line))
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return faces, nil
}

// Close shuts down the Python process.
func (d *FaceMeshDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// args renders the detector configuration as command-line flags for the service.
func (d *FaceMeshDetector) args() []string {
	return []string{
		d.scriptPath,
		"--max-faces", strconv.Itoa(d.config.MaxFaces),
		"--refine-landmarks=" + strconv.FormatBool(d.config.RefineLandmarks),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinDetectionConf, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	}
}

func (d *FaceMeshDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.args()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start facemesh service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	// The service reports once whether the model loaded.
	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.shutdown()
		return fmt.Errorf("read handshake: %w", err)
	}
	if err := parseHandshake([]byte(line)); err != nil {
		d.shutdown()
		return err
	}

	return nil
}

// parseHandshake checks the service's first line: {"ready":true} or
// {"ready":false,"error":"..."}.
func parseHandshake(line []byte) error {
	var hs struct {
		Ready bool   `json:"ready"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(line, &hs); err != nil {
		return fmt.Errorf("parse handshake: %w", err)
	}
	if !hs.Ready {
		if hs.Error == "" {
			hs.Error = "service not ready"
		}
		return fmt.Errorf("facemesh service: %s", hs.Error)
	}
	return nil
}

func (d *FaceMeshDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *FaceMeshDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findScript(name string) string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", name),
		filepath.Join("..", "scripts", name),
		filepath.Join(execDir, "scripts", name),
		filepath.Join(os.Getenv("HOME"), ".easel", "scripts", name),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".easel/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonFace represents the JSON structure from the Python service.
type jsonFace struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// parseResponse decodes one response line from the service.
func parseResponse(line []byte) ([]FaceLandmarks, error) {
	var response struct {
		Faces []jsonFace `json:"faces"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	faces := make([]FaceLandmarks, 0, len(response.Faces))
	for _, f := range response.Faces {
		faces = append(faces, FaceLandmarks{Points: f.Points, Score: f.Score})
	}
	return faces, nil
}
