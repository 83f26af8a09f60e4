// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package poolsim

type constError string

func (e constError) Error() string {
	return string(e)
}

const ErrUnknownSyncMode = constError("unknown synchronization mode")
const ErrUnknownDurationClass = constError("unknown task duration class")
