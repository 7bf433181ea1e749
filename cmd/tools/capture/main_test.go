package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkj/caprand/internal/capdb"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/serialcap"
	"github.com/mkj/caprand/internal/testutil"
)

// fakePort streams canned device output and then reports EOF.
type fakePort struct {
	*strings.Reader
	closed bool
}

func (p *fakePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func withPort(t *testing.T, data string) (*fakePort, *string, *serialcap.PortOptions) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	port := &fakePort{Reader: strings.NewReader(data)}
	var gotPath string
	var gotOpts serialcap.PortOptions
	openPort = func(path string, opts serialcap.PortOptions) (serialcap.SerialPorter, error) {
		gotPath, gotOpts = path, opts
		return port, nil
	}
	t.Cleanup(func() {
		openPort = serialcap.Open
		monitoring.Logf = orig
	})
	return port, &gotPath, &gotOpts
}

func TestRun_CaptureToFile(t *testing.T) {
	port, path, opts := withPort(t, "ff\n01\n02\nzz\n04\n08\n10\n")
	out := filepath.Join(t.TempDir(), "cap.bin")

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-port", "/dev/ttyUSB3", "-baud", "9600", "-n", "4", "-o", out}, &stdout))

	assert.Equal(t, "/dev/ttyUSB3", *path)
	assert.Equal(t, 9600, opts.BaudRate)
	assert.True(t, port.closed)
	assert.Equal(t, []byte{0x01, 0x02, 0x04, 0x08}, testutil.ReadFile(t, out))
	assert.Contains(t, stdout.String(), "captured 4 bytes to "+out)
	assert.Contains(t, stdout.String(), "health ok")
}

func TestRun_ConfigDefaultsAndRecord(t *testing.T) {
	_, path, opts := withPort(t, "aa\n01\n02\n03\n04\n")
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "captures.db")
	out := filepath.Join(dir, "cap.bin")
	cfg := testutil.WriteFile(t, "tools.yaml", []byte("serial_port: /dev/ttyACM9\nbaud_rate: 57600\ndb_path: "+dbPath+"\n"))

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfg, "-o", out}, &stdout))
	assert.Equal(t, "/dev/ttyACM9", *path)
	assert.Equal(t, 57600, opts.BaudRate)
	assert.Contains(t, stdout.String(), "session ")

	db, err := capdb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	sessions, err := db.ListSessions(0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.Equal(t, "/dev/ttyACM9", s.Source)
	assert.Equal(t, out, s.OutputPath)
	assert.Equal(t, 4, s.ByteCount)
	assert.True(t, s.HealthOK)
	// 01 03 -> index 0, 02 -> 1, 04 -> 2
	assert.Equal(t, []int{2, 1, 1, 0, 0, 0, 0, 0, 0}, s.Histogram)
	assert.InDelta(t, 1.5, s.ShannonBits, 1e-9)
}

// idlePort never has data, like a device that has stopped streaming.
type idlePort struct{ fakePort }

func (idlePort) Read([]byte) (int, error) { return 0, nil }

func TestRun_CancelledWithNothingCaptured(t *testing.T) {
	withPort(t, "")
	openPort = func(string, serialcap.PortOptions) (serialcap.SerialPorter, error) {
		return &idlePort{}, nil
	}
	out := filepath.Join(t.TempDir(), "cap.bin")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, []string{"-o", out}, &bytes.Buffer{})
	assert.EqualError(t, err, "no samples captured")
	assert.NoFileExists(t, out)
}

func TestRun_OpenFails(t *testing.T) {
	withPort(t, "")
	openPort = func(string, serialcap.PortOptions) (serialcap.SerialPorter, error) {
		return nil, errors.New("no such port")
	}
	assert.EqualError(t, run(context.Background(), nil, &bytes.Buffer{}), "no such port")
}

func TestRun_ListPorts(t *testing.T) {
	orig := listPorts
	listPorts = func() ([]string, error) { return []string{"/dev/ttyACM0", "/dev/ttyACM1"}, nil }
	defer func() { listPorts = orig }()

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-list-ports"}, &stdout))
	assert.Equal(t, "/dev/ttyACM0\n/dev/ttyACM1\n", stdout.String())
}
