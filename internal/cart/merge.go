package cart

// Merge reconciles a local (guest) cart with the server cart: every remote
// item in order, then each local item whose product and dates are absent
// from remote, in local order. Remote wins on conflicting keys, so merging a
// cart with itself returns it unchanged. A local kit group whose anchor
// collides is dropped whole, so no member is appended without its anchor.
func Merge(local, remote []Item) []Item {
	out := cloneItems(remote)
	present := make(map[mergeKey]struct{}, len(remote))
	for _, item := range remote {
		present[item.mergeKey()] = struct{}{}
	}
	dropped := map[string]struct{}{}
	for _, item := range local {
		if !item.IsAnchor || !item.InGroup() {
			continue
		}
		if _, ok := present[item.mergeKey()]; ok {
			dropped[item.GroupID] = struct{}{}
		}
	}
	for _, item := range local {
		if _, ok := present[item.mergeKey()]; ok {
			continue
		}
		if _, ok := dropped[item.GroupID]; ok && item.InGroup() {
			continue
		}
		out = append(out, item.clone())
	}
	return out
}

// LocalOnly returns the local items Merge would append to remote.
func LocalOnly(local, remote []Item) []Item {
	return Merge(local, remote)[len(remote):]
}
