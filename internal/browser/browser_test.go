package browser

import "testing"

func TestOpenRejectsNonHTTP(t *testing.T) {
	for _, u := range []string{"file:///etc/passwd", "javascript:alert(1)", "ftp://example.com", ""} {
		if err := Open(u); err == nil {
			t.Errorf("Open(%q): expected error, got nil", u)
		}
	}
}

func TestDashboardURL(t *testing.T) {
	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{":5000", "http://localhost:5000/", false},
		{"0.0.0.0:8080", "http://localhost:8080/", false},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/", false},
		{"[::]:5000", "http://localhost:5000/", false},
		{"5000", "", true},
	}
	for _, tt := range tests {
		got, err := DashboardURL(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("DashboardURL(%q) err = %v, wantErr %v", tt.addr, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("DashboardURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
