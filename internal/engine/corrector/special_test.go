package corrector

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSpecialTokens(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    specialTokens
		wantErr bool
	}{
		{
			name: "t5 config",
			body: `{"model_type":"t5","pad_token_id":0,"eos_token_id":1,"decoder_start_token_id":0}`,
			want: specialTokens{padID: 0, eosID: 1, decoderStartID: 0},
		},
		{
			name: "start defaults to pad",
			body: `{"pad_token_id":3,"eos_token_id":2}`,
			want: specialTokens{padID: 3, eosID: 2, decoderStartID: 3},
		},
		{
			name: "explicit start without pad",
			body: `{"eos_token_id":2,"decoder_start_token_id":7}`,
			want: specialTokens{padID: 0, eosID: 2, decoderStartID: 7},
		},
		{
			name:    "missing eos",
			body:    `{"pad_token_id":0}`,
			wantErr: true,
		},
		{
			name:    "missing start and pad",
			body:    `{"eos_token_id":1}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			body:    `{"eos_token_id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadSpecialTokens(writeConfig(t, tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestLoadSpecialTokensMissingFile(t *testing.T) {
	if _, err := loadSpecialTokens(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTerminate(t *testing.T) {
	const eos = 1
	tests := []struct {
		name   string
		ids    []int64
		maxLen int
		want   []int64
	}{
		{"already terminated", []int64{5, 6, eos}, 8, []int64{5, 6, eos}},
		{"eos appended", []int64{5, 6}, 8, []int64{5, 6, eos}},
		{"empty", nil, 8, []int64{eos}},
		{"truncated and terminated", []int64{5, 6, 7, 8, 9}, 3, []int64{5, 6, eos}},
		{"terminated but too long", []int64{5, 6, 7, eos}, 3, []int64{5, 6, eos}},
		{"exactly at cap", []int64{5, 6, eos}, 3, []int64{5, 6, eos}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := terminate(tt.ids, tt.maxLen, eos)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("terminate(%v, %d) = %v, want %v", tt.ids, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPathsFromDir(t *testing.T) {
	p := PathsFromDir("models")
	want := Paths{
		Encoder:   filepath.Join("models", "encoder_model.onnx"),
		Decoder:   filepath.Join("models", "decoder_model.onnx"),
		Tokenizer: filepath.Join("models", "tokenizer.json"),
		Config:    filepath.Join("models", "config.json"),
		ORTLib:    filepath.Join("models", "libonnxruntime.so"),
	}
	if p != want {
		t.Errorf("got %+v, want %+v", p, want)
	}
}
