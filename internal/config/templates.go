package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "manifest":
		return manifestTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `host = "127.0.0.1"
port = 18944
manifest = "manifest.toml"
http_addr = "127.0.0.1:9180"
# http_token = "change-me"
apply_inbound = false

unit_scale = 1000.0
mirror_axis = "x"
translation_limit = 10000.0

send_interval = "20ms"
read_poll = "100ms"
connect_timeout = "5s"
write_timeout = "2s"
max_connect_attempts = 5
verify_checksum = false
`

const manifestTemplate = `name = "planning"

[[entities]]
id = "Screw-1"
index = 1
color = "yellow"
diameter = 6.5
length = 45.0
position = [0.01, 0.02, 0.03]
rotation = [0.0, 0.0, 0.0]

[[entities]]
id = "Screw-2"
index = 2
color = "blue"
diameter = 5.5
length = 40.0
position = [-0.01, 0.02, 0.03]
rotation = [0.0, 15.0, 0.0]

[[entities]]
id = "ClippingPlane"
index = 3
position = [0.0, 0.0, 0.5]
`
