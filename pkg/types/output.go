package types

import "fmt"

// ProgramOutput 客体程序提交的公开输出记录
//
// 证明对这份记录中的每个字段做出承诺，验证方只能看到这份记录。
type ProgramOutput struct {
	InitialState  StateDigest `json:"initial_state"`
	NextState     StateDigest `json:"next_state"`
	NextStateData []byte      `json:"next_state_data"`
	Identity      Identity    `json:"identity"`
	TxHash        TxHash      `json:"tx_hash"`
	Index         BlobIndex   `json:"index"`
	BlobsDigest   StateDigest `json:"blobs_digest"`
	Success       bool        `json:"success"`
	Output        string      `json:"output"`
}

// Line 返回稳定的单行公开输出
func (o *ProgramOutput) Line() string {
	if o.Success {
		return fmt.Sprintf("success: %s", o.Output)
	}
	return fmt.Sprintf("failure: %s", o.Output)
}
