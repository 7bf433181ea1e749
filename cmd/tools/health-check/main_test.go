package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkj/caprand/internal/health"
	"github.com/mkj/caprand/internal/monitoring"
	"github.com/mkj/caprand/internal/testutil"
)

func quietLogs(t *testing.T) {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = orig })
}

func counting(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestRun_Pass(t *testing.T) {
	quietLogs(t)
	in := testutil.WriteFile(t, "cap.bin", counting(2048))

	var out bytes.Buffer
	require.NoError(t, run([]string{in}, &out))
	assert.Equal(t, "samples 2048\nfailures 0 (repetition 0, adaptive proportion 0)\nok\n", out.String())
}

func TestRun_StuckSource(t *testing.T) {
	quietLogs(t)
	in := testutil.WriteFile(t, "cap.bin", make([]byte, 300))

	var out bytes.Buffer
	err := run([]string{in}, &out)
	require.ErrorIs(t, err, health.ErrRepetition)
	assert.Contains(t, err.Error(), "offset 200")
	assert.Contains(t, out.String(), "failures 100 (repetition 100, adaptive proportion 0)")
}

func TestRun_ConfigCutoffs(t *testing.T) {
	quietLogs(t)
	data := append(counting(10), 7, 7, 7, 7)
	in := testutil.WriteFile(t, "cap.bin", data)
	cfg := testutil.WriteFile(t, "tools.json", []byte(`{"rct_cutoff": 3}`))

	err := run([]string{"-config", cfg, in}, &bytes.Buffer{})
	require.ErrorIs(t, err, health.ErrRepetition)
	assert.Contains(t, err.Error(), "offset 12")
}

func TestRun_HexAndLimit(t *testing.T) {
	quietLogs(t)
	in := testutil.WriteFile(t, "cap.txt", []byte("00\n01\n02\n03\n"))

	var out bytes.Buffer
	require.NoError(t, run([]string{"-hex", "-n", "3", in}, &out))
	assert.Contains(t, out.String(), "samples 3\n")
}

func TestRun_BadConfig(t *testing.T) {
	in := testutil.WriteFile(t, "cap.bin", counting(4))
	cfg := testutil.WriteFile(t, "tools.json", []byte(`{"apt_cutoff": 600}`))

	assert.Error(t, run([]string{"-config", cfg, in}, &bytes.Buffer{}))
}
