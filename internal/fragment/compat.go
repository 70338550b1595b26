package fragment

// Compatible is the feasibility predicate gating both cooperation-link
// creation and unification. child may fill parent's slot when:
//   - child's class is the wildcard or is accepted by the slot, and
//   - child's single head concept is-a the concept of the node linked to
//     the slot.
//
// A child without exactly one head, or a slot with no linked node, is never
// compatible.
func Compatible(child, parent *Fragment, slotID string, rel ConceptRelation) bool {
	if child == nil || parent == nil {
		return false
	}
	slot, ok := parent.Slot(slotID)
	if !ok {
		return false
	}
	if child.Class != WildcardClass && !slot.AcceptsClass(child.Class) {
		return false
	}
	target, ok := parent.SlotNode(slotID)
	if !ok {
		return false
	}
	head, err := child.Head()
	if err != nil {
		return false
	}
	if rel == nil {
		rel = ExactConcepts{}
	}
	return rel.IsA(head.Concept, target.Concept)
}
