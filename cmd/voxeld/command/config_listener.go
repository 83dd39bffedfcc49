package command

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-voxel/internal/listener"
)

type ListenerConfig struct {
	Port uint16 `json:"port"`
	Path string `json:"path,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("listener: port must be set to a positive integer"))
	}
	if cl.Path != "" && !strings.HasPrefix(cl.Path, "/") {
		el.Add(fmt.Errorf("listener: path %q must start with /", cl.Path))
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) *listener.WebsocketListener {
	return listener.NewWebsocketListener(cl.Port, cl.Path, cm)
}
