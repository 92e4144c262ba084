package tessd

import "testing"

func TestConfig_Defaults(t *testing.T) {
	if DefaultContainerName != "masthead-tesseract" {
		t.Errorf("unexpected default container name: %s", DefaultContainerName)
	}
	if DefaultImage != "hertzg/tesseract-server:latest" {
		t.Errorf("unexpected default image: %s", DefaultImage)
	}
	if DefaultPort != "8884" {
		t.Errorf("unexpected default port: %s", DefaultPort)
	}
}

func TestManager_URL(t *testing.T) {
	m := &Manager{hostPort: "9001"}
	if got := m.URL(); got != "http://localhost:9001" {
		t.Errorf("URL() = %q", got)
	}
}
