package embeddings

import (
	"context"
	"log/slog"
	"slices"
	"testing"
)

// fakeClient records every call and hands back one small vector per input.
type fakeClient struct {
	calls [][]string
}

func (f *fakeClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	f.calls = append(f.calls, []string{query})
	return []float32{1, 2, 3}, nil
}

func (f *fakeClient) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	f.calls = append(f.calls, documents)
	out := make([][]float32, len(documents))
	for i := range documents {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func TestNoopClient(t *testing.T) {
	client := NewNoopClient()

	t.Run("query", func(t *testing.T) {
		vec, err := client.EmbedQuery(t.Context(), "test query")
		if err != nil || vec != nil {
			t.Errorf("EmbedQuery() = %v, %v, want nil, nil", vec, err)
		}
	})

	t.Run("documents", func(t *testing.T) {
		vecs, err := client.EmbedDocuments(t.Context(), []string{"doc1", "doc2"})
		if err != nil || vecs != nil {
			t.Errorf("EmbedDocuments() = %v, %v, want nil, nil", vecs, err)
		}
	})
}

func TestNewNoopService(t *testing.T) {
	svc := NewNoopService(slog.Default())

	if svc == nil {
		t.Fatal("NewNoopService() returned nil")
	}
	if svc.IsEnabled() {
		t.Error("noop service reports enabled")
	}
}

func TestServiceIsEnabled(t *testing.T) {
	if !(&Service{enabled: true}).IsEnabled() {
		t.Error("IsEnabled() = false on an enabled service")
	}
	if (&Service{}).IsEnabled() {
		t.Error("IsEnabled() = true on the zero value")
	}
}

func TestEmbedQueryBlankSkipsProvider(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{client: fake}

	vec, err := svc.EmbedQuery(t.Context(), "   \t ")
	if err != nil {
		t.Errorf("EmbedQuery() error: %v", err)
	}
	if vec != nil {
		t.Errorf("EmbedQuery() = %v, want nil for blank input", vec)
	}
	if len(fake.calls) != 0 {
		t.Errorf("provider called %d times for blank query, want 0", len(fake.calls))
	}
}

func TestEmbedQueryTrimsInput(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{client: fake}

	if _, err := svc.EmbedQuery(t.Context(), "  phishing  "); err != nil {
		t.Fatalf("EmbedQuery() error: %v", err)
	}
	if len(fake.calls) != 1 || fake.calls[0][0] != "phishing" {
		t.Errorf("provider received %v, want the trimmed query", fake.calls)
	}
}

func TestEmbedDocumentsBlankSlotsPreserved(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{client: fake}

	docs := []string{"alpha", "", "beta", "   ", "gamma"}
	result, err := svc.EmbedDocuments(t.Context(), docs)
	if err != nil {
		t.Fatalf("EmbedDocuments() error: %v", err)
	}

	if len(result) != len(docs) {
		t.Fatalf("len(result) = %d, want %d", len(result), len(docs))
	}
	if result[1] != nil || result[3] != nil {
		t.Errorf("blank slots = %v, %v, want nil", result[1], result[3])
	}
	if result[0] == nil || result[2] == nil || result[4] == nil {
		t.Errorf("non-blank slots missing vectors: %v", result)
	}

	// Only the non-blank texts reach the provider, in input order.
	want := []string{"alpha", "beta", "gamma"}
	if len(fake.calls) != 1 || !slices.Equal(fake.calls[0], want) {
		t.Errorf("provider received %v, want %v", fake.calls, want)
	}
}

func TestEmbedDocumentsAllBlank(t *testing.T) {
	fake := &fakeClient{}
	svc := &Service{client: fake}

	result, err := svc.EmbedDocuments(t.Context(), []string{"", "  "})
	if err != nil {
		t.Fatalf("EmbedDocuments() error: %v", err)
	}
	if len(result) != 2 || result[0] != nil || result[1] != nil {
		t.Errorf("result = %v, want two nil slots", result)
	}
	if len(fake.calls) != 0 {
		t.Error("provider called for all-blank input")
	}
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	svc := &Service{client: NewNoopClient()}

	result, err := svc.EmbedDocuments(t.Context(), nil)
	if err != nil {
		t.Errorf("EmbedDocuments() error: %v", err)
	}
	if result != nil {
		t.Errorf("EmbedDocuments(nil) = %v, want nil", result)
	}
}

func TestEmbedDocumentsShortProviderResponse(t *testing.T) {
	// The noop client answers with no vectors at all; slots stay nil
	// rather than panicking on the length mismatch.
	svc := &Service{client: NewNoopClient()}

	result, err := svc.EmbedDocuments(t.Context(), []string{"doc1", "doc2"})
	if err != nil {
		t.Errorf("EmbedDocuments() error: %v", err)
	}
	if len(result) != 2 || result[0] != nil || result[1] != nil {
		t.Errorf("EmbedDocuments() = %v, want two nil slots", result)
	}
}
