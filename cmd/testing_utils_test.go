package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tapvault/tapvault/internal/configs"
)

// setupTestEnvironment points the settings global at temp directories for
// one test and restores it afterwards.
func setupTestEnvironment(t *testing.T) {
	t.Helper()
	tempDir := t.TempDir()
	originalSettings := configs.UserTapvaultSettings
	configs.UserTapvaultSettings = &configs.UserSettings{
		UserConfigPath: filepath.Join(tempDir, "config"),
		UserDataPath:   filepath.Join(tempDir, "data"),
	}
	t.Cleanup(func() {
		configs.UserTapvaultSettings = originalSettings
	})
}

// writeTestConfig writes an initialized configuration with the software
// token's presence delay disabled, so ceremonies do not slow the tests down.
func writeTestConfig(t *testing.T) {
	t.Helper()
	config := configs.DefaultConfig()
	config.Authenticator.PresenceDelayMs = 0
	if err := configs.SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, stdoutReader)
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, stderrReader)
		outputChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	stdout := <-outputChan
	stderr := <-outputChan

	return stdout + stderr, err
}

// runCommand resets global state and executes the root command with the
// given arguments, returning the combined stdout and stderr output.
func runCommand(args ...string) (string, error) {
	ResetGlobalState()
	RootCmd.SetArgs(args)
	return captureOutput(func() error {
		return RootCmd.Execute()
	})
}

// withStdin feeds input on os.Stdin for the duration of fn. Used for
// --value-stdin and confirmation prompts.
func withStdin(t *testing.T, input string, fn func()) {
	t.Helper()
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	originalStdin := os.Stdin
	os.Stdin = reader
	defer func() { os.Stdin = originalStdin }()

	go func() {
		defer writer.Close()
		_, _ = io.WriteString(writer, input)
	}()
	fn()
}
