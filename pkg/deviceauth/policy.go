package deviceauth

// Policy controls what happens when a submission cannot be verified because
// the device has no stored public key or supplied no signature envelope.
type Policy int

const (
	// PolicyAllowUnauthenticatedIfUnregistered skips verification when no
	// public key is on record or the envelope is empty. This is the
	// historical default: a deliberate weak-authentication fallback for
	// devices that self-register implicitly through submission, not an
	// oversight. A present envelope with a stored key is always verified.
	PolicyAllowUnauthenticatedIfUnregistered Policy = iota

	// PolicyEnforced rejects any submission that cannot be verified:
	// missing key or missing envelope is an authentication failure.
	PolicyEnforced
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyEnforced:
		return "enforced"
	case PolicyAllowUnauthenticatedIfUnregistered:
		return "allow-unregistered"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration string to a Policy. Returns false for
// unrecognized values.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "enforced":
		return PolicyEnforced, true
	case "allow-unregistered", "":
		return PolicyAllowUnauthenticatedIfUnregistered, true
	default:
		return PolicyAllowUnauthenticatedIfUnregistered, false
	}
}
