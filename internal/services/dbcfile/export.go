// Package dbcfile renders the signal model as a minimal DBC file so
// exports load in standard CAN tooling.
package dbcfile

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"CANProbe/internal/domain/models"
	"CANProbe/internal/services/codec"
)

const node = "Vector__XXX"

// Export writes BO_/SG_ blocks for every message, plus CM_ lines for
// signal comments. Messages are ordered by numeric identifier and
// signals by name, so repeated exports of the same model are
// byte-identical.
func Export(messages []models.Message) ([]byte, error) {
	msgs := append([]models.Message(nil), messages...)
	ids := make(map[string]uint64, len(msgs))
	for _, m := range msgs {
		id, err := strconv.ParseUint(models.NormalizeCANID(m.CANID), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("message %s: bad CAN id: %w", m.CANID, err)
		}
		ids[m.CANID] = id
	}
	sort.Slice(msgs, func(i, j int) bool { return ids[msgs[i].CANID] < ids[msgs[j].CANID] })

	var buf bytes.Buffer
	buf.WriteString("VERSION \"\"\n\n")
	buf.WriteString("NS_ :\n\n")
	buf.WriteString("BS_:\n\n")
	buf.WriteString("BU_: " + node + "\n\n")

	type comment struct {
		id   uint64
		name string
		text string
	}
	var comments []comment

	for _, m := range msgs {
		sigs := append([]models.Signal(nil), m.Signals...)
		sort.Slice(sigs, func(i, j int) bool { return sigs[i].Name < sigs[j].Name })

		size := m.Size
		if size <= 0 {
			for i := range sigs {
				if n := codec.RequiredBytes(&sigs[i]); n > size {
					size = n
				}
			}
			if size < 1 {
				size = 1
			}
		}
		if size > 8 {
			size = 8
		}

		name := m.Name
		if name == "" {
			name = "MSG_" + models.NormalizeCANID(m.CANID)
		}
		fmt.Fprintf(&buf, "BO_ %d %s: %d %s\n", ids[m.CANID], name, size, node)

		for i := range sigs {
			s := &sigs[i]
			order := "1" // Intel
			if s.ByteOrder == models.BigEndian {
				order = "0" // Motorola
			}
			sign := "+"
			if s.Signed {
				sign = "-"
			}
			fmt.Fprintf(&buf, " SG_ %s : %d|%d@%s%s (%s,%s) [%s|%s] \"%s\" %s\n",
				sanitizeName(s.Name), s.StartBit, s.Length, order, sign,
				num(s.Scale), num(s.Offset), num(s.MinVal), num(s.MaxVal),
				s.Unit, node)
			if s.Comment != "" {
				comments = append(comments, comment{id: ids[m.CANID], name: sanitizeName(s.Name), text: s.Comment})
			}
		}
		buf.WriteByte('\n')
	}

	for _, c := range comments {
		fmt.Fprintf(&buf, "CM_ SG_ %d %s \"%s\";\n", c.id, c.name, strings.ReplaceAll(c.text, `"`, `'`))
	}

	return buf.Bytes(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// sanitizeName maps a label to the DBC identifier charset.
func sanitizeName(name string) string {
	if name == "" {
		return "SIG"
	}
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
