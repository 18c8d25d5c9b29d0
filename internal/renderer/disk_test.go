package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAvailableBytes(t *testing.T) {
	cases := []struct {
		name  string
		avail string
		want  int64
	}{
		{name: "gigabytes", avail: "12G", want: 12 * 1024 * 1024 * 1024},
		{name: "megabytes", avail: "512M", want: 512 * 1024 * 1024},
		{name: "kilobytes", avail: "100K", want: 100 * 1024},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := "Filesystem      Size  Used Avail Use% Mounted on\n" +
				"/dev/sda1       100G   50G  " + tc.avail + "  81% /var/lib/docker\n"

			bytes, err := parseAvailableBytes([]byte(out))
			require.NoError(t, err)
			assert.Equal(t, tc.want, bytes)
		})
	}
}

func TestParseAvailableBytes_Invalid(t *testing.T) {
	cases := []struct {
		name string
		out  string
	}{
		{name: "empty", out: ""},
		{name: "header only", out: "Filesystem Size Used Avail Use%\n"},
		{name: "too few columns", out: "header\n/dev/sda1 100G\n"},
		{name: "unparseable avail", out: "header\n/dev/sda1 100G 50G lots 81% /\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseAvailableBytes([]byte(tc.out))
			assert.Error(t, err)
		})
	}
}
