package orm

import (
	"fmt"
	"io"
	"time"

	"github.com/medatechnology/goutil/print"
	"github.com/medatechnology/goutil/timedate"
)

// Per-node status. Backends fill what they know and leave the rest zero.
type StatusStruct struct {
	URL        string        `json:"url,omitempty"          db:"url"`         // URL (host + port) or file path
	Version    string        `json:"version,omitempty"      db:"version"`     // version of the DMBS
	DBMS       string        `json:"dbms,omitempty"         db:"dbms"`        // sqlite, postgresql, rqlite
	DBMSDriver string        `json:"dbms_driver,omitempty"  db:"dbms_driver"` // go driver in use
	StartTime  time.Time     `json:"start_time,omitempty"   db:"start_time"`
	Uptime     time.Duration `json:"uptime,omitempty"       db:"uptime"`
	DBSize     int64         `json:"db_size,omitempty"      db:"db_size"` // if applicable
	NodeID     string        `json:"node_id,omitempty"      db:"node_id"`
	IsLeader   bool          `json:"is_leader,omitempty"    db:"is_leader"`
	Leader     string        `json:"leader,omitempty"       db:"leader"` // complete address (including protocol, ie: https://...)
	Mode       string        `json:"mode,omitempty"         db:"mode"`   // options are r, w, or rw
	Nodes      int           `json:"nodes,omitempty"        db:"nodes"`  // total number of nodes in the cluster
	NodeNumber int           `json:"node_number,omitempty"  db:"node_number"`
	MaxPool    int           `json:"max_pool,omitempty"     db:"max_pool"`
}

// NodeStatusStruct is a node's status plus its peers, keyed by node number.
// Single-node engines leave Peers empty.
type NodeStatusStruct struct {
	StatusStruct
	Peers map[int]StatusStruct // all peers including the leader
}

// WritePretty writes an aligned "label: value" listing, skipping empty values.
func (s *StatusStruct) WritePretty(w io.Writer, indent, title string) {
	if title == "" {
		title = "Status"
	}
	fmt.Fprintln(w, indent+title+":")

	uptime := ""
	if s.Uptime > 0 {
		uptime = timedate.DurationUptimeShort(s.Uptime)
	}
	dbSize := ""
	if s.DBSize > 0 {
		dbSize = print.BytesToHumanReadable(s.DBSize, " ")
	}
	startTime := ""
	if !s.StartTime.IsZero() {
		startTime = s.StartTime.Format("2006-01-02 15:04:05")
	}
	fields := []struct {
		label string
		value string
	}{
		{"URL", s.URL},
		{"DBMS", s.DBMS},
		{"Driver", s.DBMSDriver},
		{"Version", s.Version},
		{"Start Time", startTime},
		{"Uptime", uptime},
		{"DB Size", dbSize},
		{"Node ID", s.NodeID},
		{"Is Leader", fmt.Sprintf("%t", s.IsLeader)},
		{"Leader", s.Leader},
		{"Mode", s.Mode},
		{"Nodes", fmt.Sprintf("%d", s.Nodes)},
		{"Max Pool", fmt.Sprintf("%d", s.MaxPool)},
	}

	maxLabelLength := 0
	for _, field := range fields {
		if len(field.label) > maxLabelLength {
			maxLabelLength = len(field.label)
		}
	}

	for _, field := range fields {
		if field.value != "" && field.value != "0" {
			fmt.Fprintf(w, "%s  %-*s: %s\n", indent, maxLabelLength, field.label, field.value)
		}
	}
}

// WritePretty writes the node and then every peer that is not the node itself.
func (s *NodeStatusStruct) WritePretty(w io.Writer) {
	s.StatusStruct.WritePretty(w, "", "Status")
	for i := range s.Peers {
		p := s.Peers[i]
		if p.NodeID != s.NodeID {
			p.WritePretty(w, "  ", fmt.Sprintf("Peer %d", i))
		}
	}
}
