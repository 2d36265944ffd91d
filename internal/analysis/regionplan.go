package analysis

// RegionPlan is derived from an EscapeSummary: per-value ThreadLocal
// unless the value escapes; return region mirrors ReturnClass. Consumed
// by the interpreter when it needs a temporary buffer for
// BuildList/BuildMap/ToIter/slice operations.
type RegionPlan struct {
	Slots        map[int]Region
	ReturnRegion Region
}

// BuildRegionPlan derives a RegionPlan from an EscapeSummary.
func BuildRegionPlan(summary *EscapeSummary) *RegionPlan {
	plan := &RegionPlan{Slots: make(map[int]Region, len(summary.EscapingSlots))}
	for slot, escapes := range summary.EscapingSlots {
		if escapes {
			plan.Slots[slot] = RegionHeap
		}
	}
	if summary.ReturnClass == Escapes {
		plan.ReturnRegion = RegionHeap
	} else {
		plan.ReturnRegion = RegionThreadLocal
	}
	return plan
}

// RegionOf returns the classification for slot, defaulting to
// ThreadLocal when the escape pass never marked it (:
// "Default classification is Trivial").
func (p *RegionPlan) RegionOf(slot int) Region {
	if p == nil {
		return RegionThreadLocal
	}
	if r, ok := p.Slots[slot]; ok {
		return r
	}
	return RegionThreadLocal
}
