/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package placement

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"
	"github.com/p4lang/tableplace/internal/opts"
)

const (
	_ColumnWidth = 180
	_RowHeight   = 22
	_Margin      = 40
)

// DrawSVG renders the stage occupancy of a placement: one column per stage,
// one box per placed piece, and the fullest resource share of the stage
// printed under its column.
func DrawSVG(w io.Writer, p *Placement, cap opts.StageCapacity) {
	rows := 0
	cols := make([][]Record, p.Stages)
	for _, r := range p.Records {
		cols[r.Stage] = append(cols[r.Stage], r)
		if len(cols[r.Stage]) > rows {
			rows = len(cols[r.Stage])
		}
	}

	c := svg.New(w)
	c.Start(p.Stages*_ColumnWidth+_Margin*2, (rows+3)*_RowHeight+_Margin*2)
	c.Title(fmt.Sprintf("%d stages", p.Stages))
	c.Rect(0, 0, p.Stages*_ColumnWidth+_Margin*2, (rows+3)*_RowHeight+_Margin*2, "fill:white")
	c.Gstyle("font-size:12px;font-family:monospace")

	for s, col := range cols {
		x := _Margin + s*_ColumnWidth
		c.Text(x+_ColumnWidth/2, _Margin, fmt.Sprintf("stage %d", s), "fill:black;text-anchor:middle")
		c.Line(x, _Margin+6, x, _Margin+(rows+2)*_RowHeight, "stroke:lightgray")

		/* one box per piece, greyed when it holds no logical id */
		for i, r := range col {
			y := _Margin + (i+1)*_RowHeight
			fill := "fill:lightsteelblue;stroke:black"
			if r.LogicalId < 0 {
				fill = "fill:whitesmoke;stroke:gray"
			}
			label := r.Table.Name
			if r.Allocated != r.Requested {
				label += fmt.Sprintf(" %d/%d", r.Allocated, r.Requested)
			}
			c.Rect(x+4, y-_RowHeight+8, _ColumnWidth-8, _RowHeight-4, fill)
			c.Text(x+8, y+4, label, "fill:black")
		}

		/* fullest resource of the stage */
		if s < len(p.Usage) {
			y := _Margin + (rows+2)*_RowHeight
			c.Text(x+8, y, fmt.Sprintf("%d%%", p.Usage[s].Cost(cap)), "fill:gray")
		}
	}

	c.Gend()
	c.End()
}
