package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPrivileged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		userID   string
		os       string
		want     bool
	}{
		{name: "windows local system", username: `NT AUTHORITY\SYSTEM`, userID: "S-1-5-18", os: "windows 10", want: true},
		{name: "windows administrator name", username: `CORP\Administrator`, userID: "S-1-5-21-1-2-3-1104", os: "Windows", want: true},
		{name: "windows admin substring", username: "svc_admin", userID: "", os: "windows", want: true},
		{name: "windows rid 500", username: "renamed", userID: "S-1-5-21-1-2-3-500", os: "windows", want: true},
		{name: "windows rid 5000 is not 500", username: "alice", userID: "S-1-5-21-1-2-3-5000", os: "windows", want: false},
		{name: "windows standard user", username: `CORP\alice`, userID: "S-1-5-21-1-2-3-1104", os: "windows", want: false},
		{name: "linux root", username: "root", userID: "0", os: "linux", want: true},
		{name: "linux uid zero", username: "toor", userID: "0", os: "linux", want: true},
		{name: "linux standard", username: "bob", userID: "1000", os: "linux", want: false},
		{name: "linux root substring is not root", username: "rootkit", userID: "1001", os: "linux", want: false},
		{name: "darwin root uppercase", username: "ROOT", userID: "501", os: "darwin", want: true},
		{name: "freebsd unix", username: "root", userID: "0", os: "unix", want: true},
		{name: "unknown os", username: "root", userID: "0", os: "plan9", want: false},
		{name: "admin on linux is not privileged", username: "administrator", userID: "1000", os: "linux", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsPrivileged(tt.username, tt.userID, tt.os))
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Dead, Status(true))
	assert.Equal(t, Alive, Status(false))
}

func TestFamily(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FamilyWindows, Family("Windows Server 2019"))
	assert.Equal(t, FamilyLinux, Family("LINUX"))
	assert.Equal(t, FamilyOther, Family("darwin"))
	assert.Equal(t, FamilyOther, Family(""))
}

func TestProtocolOf(t *testing.T) {
	t.Parallel()

	tests := map[string]ProtocolClass{
		"http":      ProtocolHTTP,
		"HTTPS":     ProtocolHTTP,
		"mtls":      ProtocolTLS,
		"wg-tls":    ProtocolTLS,
		"dns":       ProtocolDNS,
		"tcppivot":  ProtocolTCP,
		"namedpipe": ProtocolOther,
		"":          ProtocolOther,
	}

	for transport, want := range tests {
		assert.Equal(t, want, ProtocolOf(transport), transport)
	}

	assert.Equal(t, "MTLS", ProtocolKey("mtls"))
}
