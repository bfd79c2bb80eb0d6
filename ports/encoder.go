package ports

import (
	"goelicit/domain/profile"
)

// ProfileEncoder maps profiles into the preference-dimension feature space
type ProfileEncoder interface {
	// EncodeProfile returns a length-NumDimensions feature vector
	EncodeProfile(p profile.Profile) (profile.FeatureVector, error)

	// NumDimensions is the ontology size k
	NumDimensions() int
}

// ProfileDescriber renders profiles for humans (renderer input, exports)
type ProfileDescriber interface {
	ProfileToString(p profile.Profile) string
}
