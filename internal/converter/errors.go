package converter

import "github.com/alsstream/als-pipeline/internal/alserrors"

// errSplitWithAutoTimestamp rejects the Split+auto-timestamp combination at
// construction time rather than letting it produce undefined behaviour
// mid-run (spec §9: "should be REJECTED at argument parse time").
func errSplitWithAutoTimestamp() error {
	return alserrors.NewConvertError("options.split_with_auto_timestamp",
		errStr("split and auto_timestamp cannot both be enabled"))
}

type errStr string

func (e errStr) Error() string { return string(e) }
