package catalogsync

type TriggerQuery struct {
	Force bool `query:"force" json:"force,omitempty"`
}
