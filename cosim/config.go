package cosim

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type CoSimType int

const (
	CoSimTypeClient CoSimType = iota
	CoSimTypeServer
)

func (t CoSimType) String() string {
	switch t {
	case CoSimTypeClient:
		return "Client"
	case CoSimTypeServer:
		return "Server"
	}

	return fmt.Sprintf("CoSimType(%v)", int(t))
}

type ConnectionKind int

const (
	ConnectionKindRemote ConnectionKind = iota
	ConnectionKindLocal
)

func (k ConnectionKind) String() string {
	switch k {
	case ConnectionKindRemote:
		return "Remote"
	case ConnectionKindLocal:
		return "Local"
	}

	return fmt.Sprintf("ConnectionKind(%v)", int(k))
}

// ConnectConfig describes how a client reaches its server.  An empty
// remote address means loopback; a zero remote port resolves through
// the port mapper under the server name.
type ConnectConfig struct {
	RemoteIpAddress string `yaml:"remoteIpAddress"`
	ServerName      string `yaml:"serverName"`
	ClientName      string `yaml:"clientName"`
	RemotePort      uint16 `yaml:"remotePort"`
	LocalPort       uint16 `yaml:"localPort"`
}

// LoadConnectConfig reads a ConnectConfig from a YAML file.
func LoadConnectConfig(path string) (ConnectConfig, error) {
	var config ConnectConfig

	raw, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Wrapf(err, "Could not read connect config '%v'", path)
	}

	if err := yaml.Unmarshal(raw, &config); err != nil {
		return config, errors.Wrapf(err, "Could not parse connect config '%v'", path)
	}

	return config, nil
}
