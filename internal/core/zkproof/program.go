package zkproof

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	zkiface "github.com/weisyn/zkcontract/pkg/interfaces/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

const curveID = ecc.BN254

// VerifierID 注册合约时声明的验证器标识
const VerifierID = "groth16-bn254"

// Program 完成可信设置的客体程序
type Program struct {
	guest types.ContractName
	ccs   constraint.ConstraintSystem
	pk    groth16.ProvingKey
	vk    groth16.VerifyingKey

	idOnce sync.Once
	id     types.ProgramID
	idErr  error
}

var _ zkiface.Program = (*Program)(nil)

// Guest 客体程序服务的合约名
func (p *Program) Guest() types.ContractName {
	return p.guest
}

// CanProve 是否持有证明密钥
func (p *Program) CanProve() bool {
	return p.pk != nil
}

// VerifierOnly 返回去掉证明密钥的副本，程序标识不变
func (p *Program) VerifierOnly() *Program {
	return &Program{guest: p.guest, ccs: p.ccs, vk: p.vk}
}

// ID 程序标识：序列化的验证密钥
func (p *Program) ID() (types.ProgramID, error) {
	p.idOnce.Do(func() {
		var buf bytes.Buffer
		if _, err := p.vk.WriteTo(&buf); err != nil {
			p.idErr = fmt.Errorf("%w: serialize verifying key: %v", types.ErrProving, err)
			return
		}
		p.id = buf.Bytes()
	})
	return p.id, p.idErr
}

// ============================================================================
//                              电路编译缓存
// ============================================================================

var (
	compileOnce sync.Once
	compiled    constraint.ConstraintSystem
	compileErr  error
)

// compileCircuit 编译绑定电路，进程内只编译一次
func compileCircuit() (constraint.ConstraintSystem, error) {
	compileOnce.Do(func() {
		quietGnark()
		compiled, compileErr = frontend.Compile(curveID.ScalarField(), r1cs.NewBuilder, &TransitionCircuit{})
		if compileErr != nil {
			compileErr = fmt.Errorf("%w: %v", ErrCircuitCompilationFailed, compileErr)
		}
	})
	return compiled, compileErr
}

// newProgram 为 guest 做一次新的可信设置
func newProgram(guest types.ContractName) (*Program, error) {
	ccs, err := compileCircuit()
	if err != nil {
		return nil, err
	}
	quietGnark()
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("%w: guest=%s, cause=%v", ErrSetupFailed, guest, err)
	}
	return &Program{guest: guest, ccs: ccs, pk: pk, vk: vk}, nil
}

// ============================================================================
//                              程序产物文件
// ============================================================================

// programFile 程序产物的文件格式（RLP + snappy）
//
// ProvingKey 为空表示只含验证密钥的产物，可以注册合约，不能生成证明。
type programFile struct {
	Version      uint
	Guest        string
	ProvingKey   []byte
	VerifyingKey []byte
}

// SaveProgram 把程序写入 path，父目录不存在时创建
func SaveProgram(path string, p *Program) error {
	f := &programFile{Version: artifactVersion, Guest: string(p.guest)}
	if p.pk != nil {
		var pkBuf bytes.Buffer
		if _, err := p.pk.WriteTo(&pkBuf); err != nil {
			return WrapArtifactError(path, err)
		}
		f.ProvingKey = pkBuf.Bytes()
	}
	var vkBuf bytes.Buffer
	if _, err := p.vk.WriteTo(&vkBuf); err != nil {
		return WrapArtifactError(path, err)
	}
	f.VerifyingKey = vkBuf.Bytes()

	raw, err := rlp.EncodeToBytes(f)
	if err != nil {
		return WrapArtifactError(path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapArtifactError(path, err)
		}
	}
	// 先写临时文件再改名，避免留下半个产物
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, snappy.Encode(nil, raw), 0o644); err != nil {
		return WrapArtifactError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return WrapArtifactError(path, err)
	}
	return nil
}

// SaveVerifier 只把验证密钥写入 path
func SaveVerifier(path string, p *Program) error {
	return SaveProgram(path, p.VerifierOnly())
}

// LoadProgram 从 path 读取程序
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, WrapArtifactError(path, err)
	}
	var f programFile
	if err := rlp.DecodeBytes(raw, &f); err != nil {
		return nil, WrapArtifactError(path, err)
	}
	if f.Version != artifactVersion {
		return nil, WrapArtifactError(path, fmt.Errorf("unsupported version %d", f.Version))
	}

	ccs, err := compileCircuit()
	if err != nil {
		return nil, err
	}
	vk, err := readVerifyingKey(f.VerifyingKey)
	if err != nil {
		return nil, WrapArtifactError(path, err)
	}
	p := &Program{guest: types.ContractName(f.Guest), ccs: ccs, vk: vk}
	if len(f.ProvingKey) > 0 {
		pk := groth16.NewProvingKey(curveID)
		if _, err := pk.ReadFrom(bytes.NewReader(f.ProvingKey)); err != nil {
			return nil, WrapArtifactError(path, err)
		}
		p.pk = pk
	}
	return p, nil
}

// ProgramExists path 上是否已有程序产物
func ProgramExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func readVerifyingKey(b []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(curveID)
	if _, err := vk.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return vk, nil
}
