package disclosure

import (
	"strconv"

	"hermannm.dev/enumnames"
)

// Mode selects how a frequency table is protected before publication.
type Mode uint8

const (
	ModeSuppression Mode = iota + 1
	ModeDifferentialPrivacy
)

var modeNames = enumnames.NewMap(map[Mode]string{
	ModeSuppression:         "suppression",
	ModeDifferentialPrivacy: "differential_privacy",
})

func (mode Mode) IsValid() bool {
	return modeNames.ContainsEnumValue(mode)
}

func (mode Mode) String() string {
	return modeNames.GetNameOrFallback(mode, "INVALID_PRIVACY_MODE")
}

func (mode Mode) MarshalJSON() ([]byte, error) {
	return modeNames.MarshalToNameJSON(mode)
}

func (mode *Mode) UnmarshalJSON(bytes []byte) error {
	return modeNames.UnmarshalFromNameJSON(bytes, mode)
}

// Lets env config and CLI flags set a Mode by name.
func (mode *Mode) UnmarshalText(text []byte) error {
	return modeNames.UnmarshalFromNameJSON([]byte(strconv.Quote(string(text))), mode)
}

func (mode Mode) MarshalText() ([]byte, error) {
	return []byte(mode.String()), nil
}
