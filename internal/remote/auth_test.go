package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func TestParseSSHTarget(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		user    string
		host    string
		wantErr bool
	}{
		{name: "valid", target: "alice@example.com", user: "alice", host: "example.com"},
		{name: "trimmed", target: "  bob@10.0.0.2 ", user: "bob", host: "10.0.0.2"},
		{name: "empty", target: "", wantErr: true},
		{name: "no at", target: "example.com", wantErr: true},
		{name: "missing user", target: "@example.com", wantErr: true},
		{name: "missing host", target: "alice@", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, host, err := parseSSHTarget(tc.target)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.user, user)
			assert.Equal(t, tc.host, host)
		})
	}
}

func TestKnownHostAddress(t *testing.T) {
	assert.Equal(t, "example.com", knownHostAddress("example.com", 22))
	assert.Equal(t, "[example.com]:2222", knownHostAddress("example.com", 2222))
}

func TestRemoveKnownHostEntries(t *testing.T) {
	input := strings.Join([]string{
		"# comment example.com",
		"example.com ssh-ed25519 AAAA",
		"[example.com]:22 ssh-ed25519 BBBB",
		"[example.com]:2222 ssh-ed25519 CCCC",
		"@cert-authority example.com ssh-ed25519 EEEE",
		"other.com,example.com ssh-ed25519 FFFF",
		"other.com ssh-ed25519 DDDD",
		"",
	}, "\n")

	out22 := string(removeKnownHostEntries([]byte(input), "example.com", 22))
	assert.Contains(t, out22, "# comment example.com")
	assert.NotContains(t, out22, "AAAA")
	assert.NotContains(t, out22, "BBBB")
	assert.NotContains(t, out22, "EEEE")
	assert.NotContains(t, out22, "FFFF")
	assert.Contains(t, out22, "CCCC")
	assert.Contains(t, out22, "DDDD")

	out2222 := string(removeKnownHostEntries([]byte(input), "example.com", 2222))
	assert.NotContains(t, out2222, "CCCC")
	assert.Contains(t, out2222, "AAAA")
	assert.Contains(t, out2222, "BBBB")
	assert.Contains(t, out2222, "DDDD")
}

func TestReadYesNo(t *testing.T) {
	for in, want := range map[string]bool{"yes\n": true, "Y\n": true, " y ": true, "no\n": false, "": false, "yess\n": false} {
		got, err := readYesNo(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func newHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func testVerifier(t *testing.T, batch bool, answer bool) (*hostKeyVerifier, *int) {
	t.Helper()
	asked := 0
	return &hostKeyVerifier{
		path:  filepath.Join(t.TempDir(), "ssh", "known_hosts"),
		host:  "example.com",
		port:  2222,
		batch: batch,
		prompt: func(string) (bool, error) {
			asked++
			return answer, nil
		},
		log: logrus.NewEntry(logrus.New()),
	}, &asked
}

var testRemote = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 2222}

func check(t *testing.T, v *hostKeyVerifier, key ssh.PublicKey) error {
	t.Helper()
	cb, err := v.callback()
	require.NoError(t, err)
	return cb("example.com:2222", testRemote, key)
}

func TestHostKeyVerifier_TrustOnFirstUse(t *testing.T) {
	v, asked := testVerifier(t, false, true)
	key := newHostKey(t)

	require.NoError(t, check(t, v, key))
	assert.Equal(t, 1, *asked)

	data, err := os.ReadFile(v.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), knownhosts.Line([]string{"[example.com]:2222"}, key))

	// Now known: no second prompt.
	require.NoError(t, check(t, v, key))
	assert.Equal(t, 1, *asked)
}

func TestHostKeyVerifier_UnknownRejected(t *testing.T) {
	v, _ := testVerifier(t, false, false)
	err := check(t, v, newHostKey(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not trusted")

	batch, asked := testVerifier(t, true, true)
	err = check(t, batch, newHostKey(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown host key")
	assert.Zero(t, *asked)
}

func TestHostKeyVerifier_ChangedKey(t *testing.T) {
	v, asked := testVerifier(t, true, true)
	old, changed := newHostKey(t), newHostKey(t)
	require.NoError(t, ensureFile(v.path))
	require.NoError(t, appendKnownHost(v.path, v.address(), old))

	err := check(t, v, changed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key mismatch")
	assert.Zero(t, *asked)

	v.batch = false
	require.NoError(t, check(t, v, changed))
	assert.Equal(t, 1, *asked)
	require.NoError(t, check(t, v, changed))

	data, err := os.ReadFile(v.path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), knownhosts.Line([]string{"[example.com]:2222"}, old))
}
