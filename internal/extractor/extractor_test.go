package extractor

import (
	"reflect"
	"testing"

	"tubearchivist/internal/config"
)

func TestConfigArgsPotProvider(t *testing.T) {
	ex := New(t.TempDir(), nil)
	opts := &Options{Config: &config.AppConfig{}}

	if got := ex.configArgs(opts); len(got) != 0 {
		t.Fatalf("configArgs without provider = %v, want none", got)
	}

	ex.PotProviderURL = "http://bgutil:4416"
	want := []string{"--extractor-args", "youtubepot-bgutilhttp:base_url=http://bgutil:4416"}
	if got := ex.configArgs(opts); !reflect.DeepEqual(got, want) {
		t.Fatalf("configArgs = %v, want %v", got, want)
	}
}
