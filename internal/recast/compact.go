package recast

// This file fills a gap in the vendored recast port: building a
// CompactHeightfield from a solid Heightfield, the low-height span filter,
// convex-area marking and height-field layer construction have no
// counterpart among the ported files, yet BuildRegions/BuildContours/
// BuildPolyMesh/BuildPolyMeshDetail all assume a *CompactHeightfield as
// their input. Grounded on the standard Recast build pipeline that the
// ported region.go/contour.go/meshdetail.go files themselves already
// implement pieces of (RecastCompact.cpp/RecastFilter.cpp/RecastArea.cpp/
// RecastLayers.cpp upstream), written in the same span/CompactSpan idiom.

// FilterWalkableLowHeightSpans removes spans that are walkable from a
// standpoint of slope and obstacle height, but which have too little
// clearance above them to fit an agent of the given walkableHeight.
func FilterWalkableLowHeightSpans(ctx *BuildContext, walkableHeight int32, solid *Heightfield) {
	ctx.StartTimer(RC_TIMER_FILTER_WALKABLE)
	defer ctx.StopTimer(RC_TIMER_FILTER_WALKABLE)

	w := solid.Width
	h := solid.Height

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			for s := solid.Spans[x+y*w]; s != nil; s = s.next {
				bot := int32(s.smax)
				var top int32
				if s.next != nil {
					top = int32(s.next.smin)
				} else {
					top = int32(RC_SPAN_MAX_HEIGHT)
				}
				if (top - bot) < walkableHeight {
					s.area = RC_NULL_AREA
				}
			}
		}
	}
}

// BuildCompactHeightfield builds a compact heightfield representing open
// (walkable) space out of a general purpose Heightfield.
// See: rcConfig.walkableHeight, rcConfig.walkableClimb.
func BuildCompactHeightfield(ctx *BuildContext, walkableHeight, walkableClimb int32, hf *Heightfield, chf *CompactHeightfield) bool {
	ctx.StartTimer(RC_TIMER_BUILD_COMPACTHEIGHTFIELD)
	defer ctx.StopTimer(RC_TIMER_BUILD_COMPACTHEIGHTFIELD)

	w := hf.Width
	h := hf.Height

	spanCount := int32(0)
	for i := int32(0); i < w*h; i++ {
		for s := hf.Spans[i]; s != nil; s = s.next {
			if s.area != RC_NULL_AREA {
				spanCount++
			}
		}
	}

	chf.Width = w
	chf.Height = h
	chf.SpanCount = spanCount
	chf.walkableHeight = walkableHeight
	chf.walkableClimb = walkableClimb
	chf.MaxRegions = 0
	copy(chf.BMin[:], hf.BMin[:])
	copy(chf.BMax[:], hf.BMax[:])
	chf.BMax[1] += float32(walkableHeight) * hf.Ch
	chf.Cs = hf.Cs
	chf.Ch = hf.Ch
	chf.Cells = make([]CompactCell, w*h)
	chf.Spans = make([]CompactSpan, spanCount)
	chf.Areas = make([]uint8, spanCount)

	const maxHeight = int32(RC_SPAN_MAX_HEIGHT)

	idx := int32(0)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			s := hf.Spans[x+y*w]
			if s == nil {
				continue
			}

			c := &chf.Cells[x+y*w]
			c.Index = uint32(idx)
			count := uint8(0)
			for ; s != nil; s = s.next {
				if s.area != RC_NULL_AREA {
					bot := int32(s.smax)
					var top int32
					if s.next != nil {
						top = int32(s.next.smin)
					} else {
						top = maxHeight
					}
					cs := &chf.Spans[idx]
					cs.Y = uint16(iClamp(bot, 0, maxHeight))
					hgt := iClamp(top-bot, 0, maxHeight)
					cs.h = uint8(iMin(hgt, 255))
					chf.Areas[idx] = s.area
					idx++
					count++
				}
			}
			c.Count = count
		}
	}

	// Find neighbour connections.
	const maxLayers = RC_NOT_CONNECTED - 1
	tooHighNeighbour := int32(0)
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int32(c.Index); i < int32(c.Index)+int32(c.Count); i++ {
				s := &chf.Spans[i]

				for dir := int32(0); dir < 4; dir++ {
					SetCon(s, dir, RC_NOT_CONNECTED)
					nx := x + GetDirOffsetX(dir)
					ny := y + GetDirOffsetY(dir)
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}

					nc := &chf.Cells[nx+ny*w]
					for k := int32(nc.Index); k < int32(nc.Index)+int32(nc.Count); k++ {
						ns := &chf.Spans[k]
						bot := iMax(int32(s.Y), int32(ns.Y))
						top := iMin(int32(s.Y)+int32(s.h), int32(ns.Y)+int32(ns.h))

						if (top - bot) >= walkableHeight && iAbs(int32(ns.Y)-int32(s.Y)) <= walkableClimb {
							lidx := k - int32(nc.Index)
							if lidx < 0 || lidx > int32(maxLayers) {
								tooHighNeighbour = iMax(tooHighNeighbour, lidx)
								continue
							}
							SetCon(s, dir, lidx)
							break
						}
					}
				}
			}
		}
	}

	if tooHighNeighbour > int32(maxLayers) {
		ctx.Errorf("BuildCompactHeightfield: Heightfield has too many layers %d (max: %d)", tooHighNeighbour, maxLayers)
	}

	return true
}

func iClamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MarkConvexPolyArea marks the walkable spans inside the convex XZ polygon
// whose floor height lies between hmin and hmax with the given area id.
func MarkConvexPolyArea(ctx *BuildContext, verts []float32, nverts int32, hmin, hmax float32, areaID uint8, chf *CompactHeightfield) {
	ctx.StartTimer(RC_TIMER_MARK_CONVEXPOLY_AREA)
	defer ctx.StopTimer(RC_TIMER_MARK_CONVEXPOLY_AREA)

	bmin := [3]float32{verts[0], hmin, verts[2]}
	bmax := [3]float32{verts[0], hmax, verts[2]}
	for i := int32(1); i < nverts; i++ {
		v := verts[i*3 : i*3+3]
		bmin[0] = math32min(bmin[0], v[0])
		bmin[2] = math32min(bmin[2], v[2])
		bmax[0] = math32max(bmax[0], v[0])
		bmax[2] = math32max(bmax[2], v[2])
	}
	bmin[1] = hmin
	bmax[1] = hmax

	minx := int32((bmin[0] - chf.BMin[0]) / chf.Cs)
	miny := int32((bmin[1] - chf.BMin[1]) / chf.Ch)
	minz := int32((bmin[2] - chf.BMin[2]) / chf.Cs)
	maxx := int32((bmax[0] - chf.BMin[0]) / chf.Cs)
	maxy := int32((bmax[1] - chf.BMin[1]) / chf.Ch)
	maxz := int32((bmax[2] - chf.BMin[2]) / chf.Cs)

	minx = iClamp(minx, 0, chf.Width-1)
	maxx = iClamp(maxx, 0, chf.Width-1)
	minz = iClamp(minz, 0, chf.Height-1)
	maxz = iClamp(maxz, 0, chf.Height-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			c := &chf.Cells[x+z*chf.Width]
			for i := int32(c.Index); i < int32(c.Index)+int32(c.Count); i++ {
				s := &chf.Spans[i]
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}
				if int32(s.Y) >= miny && int32(s.Y) <= maxy {
					px := float32(x)*chf.Cs + chf.BMin[0]
					pz := float32(z)*chf.Cs + chf.BMin[2]
					if pointInPoly(nverts, verts, px, pz) {
						chf.Areas[i] = areaID
					}
				}
			}
		}
	}
}

func pointInPoly(nverts int32, verts []float32, px, pz float32) bool {
	inside := false
	j := nverts - 1
	for i := int32(0); i < nverts; i++ {
		vi := verts[i*3 : i*3+3]
		vj := verts[j*3 : j*3+3]
		if ((vi[2] > pz) != (vj[2] > pz)) &&
			(px < (vj[0]-vi[0])*(pz-vi[2])/(vj[2]-vi[2])+vi[0]) {
			inside = !inside
		}
		j = i
	}
	return inside
}

func math32min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func math32max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// HeightfieldLayer is one walkable surface slab extracted from a compact
// heightfield, bounded in the y axis so that it can be encoded, compressed,
// and later rehydrated as a single tile-cache layer.
type HeightfieldLayer struct {
	BMin, BMax       [3]float32
	Cs, Ch           float32
	Width, Height    int32
	Minx, Maxx       int32
	Miny, Maxy       int32
	Hmin, Hmax       int32
	Heights          []uint8
	Areas            []uint8
	Cons             []uint8
}

// HeightfieldLayerSet is the set of layers produced for one tile.
type HeightfieldLayerSet struct {
	Layers []HeightfieldLayer
}

// BuildHeightfieldLayers partitions a compact heightfield into walkable
// layers bounded by walkableHeight, one per distinct floor band at each
// column. This mirrors the upstream rcBuildHeightfieldLayers pass that
// DynamicNavigationMesh::BuildTile runs right before handing per-layer data
// to the tile-cache compressor.
func BuildHeightfieldLayers(ctx *BuildContext, chf *CompactHeightfield, borderSize, walkableHeight int32, lset *HeightfieldLayerSet) bool {
	ctx.StartTimer(RC_TIMER_BUILD_LAYERS)
	defer ctx.StopTimer(RC_TIMER_BUILD_LAYERS)

	w := chf.Width
	h := chf.Height

	srcReg := make([]uint8, chf.SpanCount)
	for i := range srcReg {
		srcReg[i] = 0xff
	}

	// Flood-fill each unassigned span into a layer across its neighbour
	// connections, skipping neighbours whose floor differs by more than
	// walkableHeight; a connected run of stairs or a ramp ends up in a
	// single layer.
	regId := uint8(0)
	regions := make([]HeightfieldLayer, 0, 8)

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int32(c.Index); i < int32(c.Index)+int32(c.Count); i++ {
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}
				if srcReg[i] != 0xff {
					continue
				}

				cs := &chf.Spans[i]
				layer := HeightfieldLayer{
					BMin: chf.BMin, BMax: chf.BMax,
					Cs: chf.Cs, Ch: chf.Ch,
					Minx: x, Maxx: x,
					Miny: y, Maxy: y,
					Hmin: int32(cs.Y), Hmax: int32(cs.Y) + int32(cs.h),
				}
				stack := []int32{i}
				srcReg[i] = regId
				for len(stack) > 0 {
					cur := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					curSpan := &chf.Spans[cur]
					cx, cy := spanColumn(chf, cur)
					if cx < layer.Minx {
						layer.Minx = cx
					}
					if cx > layer.Maxx {
						layer.Maxx = cx
					}
					if cy < layer.Miny {
						layer.Miny = cy
					}
					if cy > layer.Maxy {
						layer.Maxy = cy
					}
					if int32(curSpan.Y) < layer.Hmin {
						layer.Hmin = int32(curSpan.Y)
					}
					if int32(curSpan.Y)+int32(curSpan.h) > layer.Hmax {
						layer.Hmax = int32(curSpan.Y) + int32(curSpan.h)
					}

					for dir := int32(0); dir < 4; dir++ {
						if GetCon(curSpan, dir) == RC_NOT_CONNECTED {
							continue
						}
						nx := cx + GetDirOffsetX(dir)
						ny := cy + GetDirOffsetY(dir)
						nc := &chf.Cells[nx+ny*w]
						ni := int32(nc.Index) + GetCon(curSpan, dir)
						if chf.Areas[ni] == RC_NULL_AREA || srcReg[ni] != 0xff {
							continue
						}
						if iAbs(int32(chf.Spans[ni].Y)-int32(curSpan.Y)) > walkableHeight {
							continue
						}
						srcReg[ni] = regId
						stack = append(stack, ni)
					}
				}
				regions = append(regions, layer)
				regId++
				if regId == 0xff {
					ctx.Errorf("BuildHeightfieldLayers: too many layers, clamping at 254")
					regId = 0xfe
				}
			}
		}
	}

	for i := range regions {
		layer := &regions[i]
		lw := layer.Maxx - layer.Minx + 1
		lh := layer.Maxy - layer.Miny + 1
		layer.Width = lw
		layer.Height = lh
		layer.Heights = make([]uint8, lw*lh)
		layer.Areas = make([]uint8, lw*lh)
		layer.Cons = make([]uint8, lw*lh)
	}

	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			c := &chf.Cells[x+y*w]
			for i := int32(c.Index); i < int32(c.Index)+int32(c.Count); i++ {
				if chf.Areas[i] == RC_NULL_AREA {
					continue
				}
				rid := srcReg[i]
				if rid == 0xff {
					continue
				}
				layer := &regions[rid]
				lx := x - layer.Minx
				ly := y - layer.Miny
				li := lx + ly*layer.Width
				s := &chf.Spans[i]
				layer.Heights[li] = uint8(iClamp(int32(s.Y)-layer.Hmin, 0, 255))
				layer.Areas[li] = chf.Areas[i]
			}
		}
	}
	_ = borderSize

	lset.Layers = regions
	return true
}

func spanColumn(chf *CompactHeightfield, spanIdx int32) (int32, int32) {
	// Binary search over cells to recover (x,y) for a span index: cells are
	// in row-major order and each cell's span range is contiguous and
	// non-overlapping, so the last cell whose Index is <= spanIdx owns it.
	lo, hi := int32(0), int32(len(chf.Cells))
	for lo < hi {
		mid := (lo + hi) / 2
		if int32(chf.Cells[mid].Index) <= spanIdx {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	cellIdx := lo - 1
	return cellIdx % chf.Width, cellIdx / chf.Width
}

