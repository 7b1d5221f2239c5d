// Package mpdclient implements the minimal subset of the MPD text
// protocol the mpd() source needs: connect, issue one `search` command,
// and parse the returned song listing into items. No MPD client library
// appears anywhere in the retrieved example pack (see SPEC_FULL.md §C),
// and MPD networking is an explicitly out-of-scope external collaborator
// whose interface the core merely consumes, so this talks the wire
// protocol directly over net.Conn rather than pulling in an unreviewed
// dependency.
package mpdclient

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/NGnius/mps/internal/collab"
	"github.com/NGnius/mps/internal/value"
)

// Client dials a fresh connection per search, matching the spec's
// one-shot search shape (§6 MPD collaborator).
type Client struct {
	Timeout time.Duration
}

func New() *Client {
	return &Client{Timeout: 5 * time.Second}
}

// Search implements collab.MPD. term in each pair is one of
// any|file|base|lastmod|<tagname>; unrecognised terms are passed through
// as a tag filter, per the original's str_to_term mapping (SPEC_FULL §D.3).
func (c *Client) Search(addr string, params []collab.TermValue) ([]*value.Item, error) {
	conn, err := net.DialTimeout("tcp", addr, c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("MPD connection error: %w", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if _, err := r.ReadString('\n'); err != nil { // greeting: "OK MPD x.y.z"
		return nil, fmt.Errorf("MPD greeting error: %w", err)
	}

	var cmd strings.Builder
	cmd.WriteString("search")
	for _, tv := range params {
		fmt.Fprintf(&cmd, " %s %s", tv.Term, quoteMPD(tv.Value))
	}
	cmd.WriteString("\n")
	if _, err := conn.Write([]byte(cmd.String())); err != nil {
		return nil, fmt.Errorf("MPD command error: %w", err)
	}

	return parseSongs(r)
}

func quoteMPD(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func parseSongs(r *bufio.Reader) ([]*value.Item, error) {
	var out []*value.Item
	var cur *value.Item

	flush := func() {
		if cur != nil {
			out = append(out, cur)
			cur = nil
		}
	}

	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "OK" {
			flush()
			return out, nil
		}
		if strings.HasPrefix(line, "ACK ") {
			return nil, fmt.Errorf("MPD search error: %s", line)
		}
		if err != nil {
			return nil, fmt.Errorf("MPD search error: %w", err)
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		if key == "file" {
			flush()
			cur = value.NewItem()
			cur.Set("filename", value.Str("mpd://"+val))
			continue
		}
		if cur == nil {
			continue
		}
		applySongField(cur, key, val)
	}
}

func applySongField(item *value.Item, key, val string) {
	switch key {
	case "Title":
		item.Set("title", value.Str(val))
	case "Name":
		item.Set("name", value.Str(val))
	case "Track":
		if n, err := strconv.ParseUint(strings.SplitN(val, "/", 2)[0], 10, 64); err == nil {
			item.Set("tracknumber", value.UInt(n))
		}
	case "Pos":
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			item.Set("tracknumber", value.UInt(n))
		}
	case "Time":
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			item.Set("duration", value.UInt(n))
		}
	case "duration":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			item.Set("duration", value.UInt(uint64(f)))
		}
	case "Id", "Last-Modified", "Format":
		// not part of the item field surface the spec documents
	default:
		item.Set(strings.ToLower(key), value.ParseLiteral(val))
	}
}
