package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Distributed-graph field helpers

func Component(name string) Field {
	return String("component", name)
}

// Rank identifies the communicator rank emitting the entry
func Rank(r int) Field {
	return Int("rank", r)
}

// Peer identifies the remote rank of a point-to-point operation
func Peer(r int) Field {
	return Int("peer", r)
}

// Collective names the collective operation in progress
func Collective(op string) Field {
	return String("collective", op)
}

// World identifies the group of ranks a process belongs to
func World(id string) Field {
	return String("world", id)
}

func Buses(n int) Field {
	return Int("buses", n)
}

func Branches(n int) Field {
	return Int("branches", n)
}

func Records(n int) Field {
	return Int("records", n)
}

func Bytes(n int) Field {
	return Int("bytes", n)
}

// Class names a ghost-exchange buffer class ("bus" or "branch")
func Class(name string) Field {
	return String("class", name)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Address(addr string) Field {
	return String("address", addr)
}
