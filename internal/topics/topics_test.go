package topics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTopicsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_themes.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStaticTopicsStripNumbering(t *testing.T) {
	path := writeTopicsFile(t, "1. Человек и природа\n\n2. Война и мир\nБез номера\n")
	p := NewProvider("", path)

	topics, err := p.staticTopics()
	require.NoError(t, err)
	assert.Equal(t, []string{"Человек и природа", "Война и мир", "Без номера"}, topics)
}

func TestStaticTopicsEmptyFile(t *testing.T) {
	path := writeTopicsFile(t, "\n\n")
	p := NewProvider("", path)

	_, err := p.staticTopics()
	assert.Error(t, err)
}

func TestSuggestUsesService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"topics": ["Тема из сервиса", "", "  Ещё тема  "]}`))
	}))
	defer server.Close()

	p := NewProvider(server.URL, writeTopicsFile(t, "1. Запасная тема\n"))
	topics, err := p.Suggest(context.Background(), []string{"Человек"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Тема из сервиса", "Ещё тема"}, topics)
}

func TestSuggestFallsBackWhenServiceEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"topics": []}`))
	}))
	defer server.Close()

	p := NewProvider(server.URL, writeTopicsFile(t, "1. Запасная тема\n"))
	topics, err := p.Suggest(context.Background(), []string{"Человек"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Запасная тема"}, topics)
}

func TestSuggestFallsBackWhenServiceDown(t *testing.T) {
	p := NewProvider("http://127.0.0.1:1", writeTopicsFile(t, "1. Запасная тема\n"))
	topics, err := p.Suggest(context.Background(), []string{"Человек"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Запасная тема"}, topics)
}

func TestSuggestTooManySections(t *testing.T) {
	p := NewProvider("", writeTopicsFile(t, "1. Тема\n"))
	_, err := p.Suggest(context.Background(), []string{"a", "b", "c", "d"})
	assert.Error(t, err)
}

func TestRandomWithoutSections(t *testing.T) {
	p := NewProvider("", writeTopicsFile(t, "1. Одна тема\n"))
	topic, err := p.Random(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Одна тема", topic)
}
