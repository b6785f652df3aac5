//go:build zmq

package main

import (
	"github.com/dd0wney/cluso-gridgraph/pkg/comm"
	"github.com/dd0wney/cluso-gridgraph/pkg/config"
)

func init() {
	dialers[config.TransportZMQ] = comm.DialZMQ
}
