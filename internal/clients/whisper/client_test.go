package whisper_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"socratic_bot/internal/clients/whisper"
)

func TestClient_Transcribe(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 检查请求方法和路径
		if r.Method != "POST" {
			t.Errorf("期望POST请求，实际收到%s", r.Method)
		}
		if r.URL.Path != "/transcribe" {
			t.Errorf("期望路径/transcribe，实际收到%s", r.URL.Path)
		}
		if r.URL.Query().Get("model") != "base" {
			t.Errorf("期望model=base，实际收到%s", r.URL.Query().Get("model"))
		}
		if r.URL.Query().Get("sample_rate") != "16000" {
			t.Errorf("期望sample_rate=16000，实际收到%s", r.URL.Query().Get("sample_rate"))
		}
		if r.Header.Get("Content-Type") != "audio/L16" {
			t.Errorf("期望Content-Type为audio/L16，实际收到%s", r.Header.Get("Content-Type"))
		}

		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "  hello world  "}`))
	}))
	defer server.Close()

	client := whisper.NewClient(whisper.Config{
		ServerURL:  server.URL,
		Model:      "base",
		SampleRate: 16000,
	})

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	text, err := client.Transcribe(context.Background(), pcm)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("Transcribe() = %q，期望裁剪后的文本", text)
	}
	if len(gotBody) != len(pcm) {
		t.Errorf("服务器收到%d字节，期望%d字节", len(gotBody), len(pcm))
	}
}

// TestClient_TranscribeEmpty 空音频不发起请求
func TestClient_TranscribeEmpty(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	client := whisper.NewClient(whisper.Config{ServerURL: server.URL, Model: "base", SampleRate: 16000})

	text, err := client.Transcribe(context.Background(), nil)
	if err != nil {
		t.Errorf("Transcribe() error = %v", err)
	}
	if text != "" {
		t.Errorf("空音频应返回空文本，实际为%q", text)
	}
	if requests != 0 {
		t.Errorf("空音频不应发起请求，实际发起%d次", requests)
	}
}

func TestClient_TranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("识别引擎崩溃"))
	}))
	defer server.Close()

	client := whisper.NewClient(whisper.Config{ServerURL: server.URL, Model: "base", SampleRate: 16000})

	_, err := client.Transcribe(context.Background(), []byte{1, 2})
	if err == nil {
		t.Error("期望收到错误，但没有收到")
	}
}
