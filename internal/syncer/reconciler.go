package syncer

import "github.com/vishu3131/civisync/domain"

// Reconciler decides what write, if any, a fetched snapshot requires
// against the current application-store row.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile classifies the required action. No existing row means create; an
// unchanged snapshot degrades to a timestamp-only update so that repeated
// syncs of the same data never produce spurious full writes.
func (r *Reconciler) Reconcile(snapshot *domain.IdentitySnapshot, existing *domain.ApplicationProfile) domain.SyncAction {
	if existing == nil {
		return domain.ActionCreate
	}
	if len(r.ChangedFields(snapshot, existing)) == 0 {
		return domain.ActionUpdateTimestamps
	}
	return domain.ActionUpdateFull
}

// ChangedFields diffs the identity fields. A field counts as changed only
// when the snapshot carries data for it: an empty snapshot value means the
// provider had nothing new, not that the stored value should be cleared.
func (r *Reconciler) ChangedFields(snapshot *domain.IdentitySnapshot, existing *domain.ApplicationProfile) []string {
	var changed []string
	if snapshot.Email != "" && snapshot.Email != existing.Email {
		changed = append(changed, "email")
	}
	if snapshot.DisplayName != "" && snapshot.DisplayName != existing.FullName {
		changed = append(changed, "full_name")
	}
	if snapshot.PhoneNumber != "" && snapshot.PhoneNumber != existing.Phone {
		changed = append(changed, "phone")
	}
	if snapshot.AvatarURL != "" && snapshot.AvatarURL != existing.AvatarURL {
		changed = append(changed, "avatar_url")
	}
	if snapshot.EmailVerified != existing.EmailVerified {
		changed = append(changed, "email_verified")
	}
	return changed
}
