package filter

import (
	"fmt"

	"golang.org/x/net/bpf"

	"firestige.xyz/pktforge/internal/core"
)

// Frame offsets for untagged Ethernet + IPv4.
const (
	offEtherType   = 12
	offIPv4        = 14
	offProtocol    = offIPv4 + 9
	offFlagsFrag   = offIPv4 + 6
	offL4SrcPort   = offIPv4 // relative to X = IPv4 header length
	offL4DstPort   = offIPv4 + 2
	fragOffsetMask = 0x1FFF
	acceptLen      = 0xFFFF
)

// Jump targets: non-negative values are relative skips.
const (
	toAccept = -1
	toDrop   = -2
)

// Expr describes the frames a BPF filter keeps.
type Expr struct {
	// Protocol is "tcp", "udp" or empty for any IPv4 frame.
	Protocol string
	// Port matches either the source or destination port when non-zero.
	// Fragments other than the first never match a port.
	Port uint16
}

// BPF is a compiled filter program evaluated with the x/net/bpf VM.
type BPF struct {
	insts []bpf.Instruction
	vm    *bpf.VM
}

type step struct {
	ins    bpf.Instruction
	jump   bool
	cond   bpf.JumpTest
	val    uint32
	jt, jf int
}

func load(ins bpf.Instruction) step { return step{ins: ins} }

func jeq(val uint32, jt, jf int) step {
	return step{jump: true, cond: bpf.JumpEqual, val: val, jt: jt, jf: jf}
}

func jset(val uint32, jt, jf int) step {
	return step{jump: true, cond: bpf.JumpBitsSet, val: val, jt: jt, jf: jf}
}

// Compile builds the BPF program for e.
func Compile(e Expr) (*BPF, error) {
	steps := []step{
		load(bpf.LoadAbsolute{Off: offEtherType, Size: 2}),
		jeq(uint32(core.EtherTypeIPv4), 0, toDrop),
	}

	switch e.Protocol {
	case "":
		if e.Port != 0 {
			steps = append(steps,
				load(bpf.LoadAbsolute{Off: offProtocol, Size: 1}),
				jeq(uint32(core.ProtocolNumberTCP), 1, 0),
				jeq(uint32(core.ProtocolNumberUDP), 0, toDrop),
			)
		}
	case "tcp", "udp":
		steps = append(steps,
			load(bpf.LoadAbsolute{Off: offProtocol, Size: 1}),
			jeq(uint32(core.ParseL4Protocol(e.Protocol).Number()), 0, toDrop),
		)
	default:
		return nil, fmt.Errorf("%w: filter protocol %q", core.ErrUnsupportedProto, e.Protocol)
	}

	if e.Port != 0 {
		steps = append(steps,
			load(bpf.LoadAbsolute{Off: offFlagsFrag, Size: 2}),
			jset(fragOffsetMask, toDrop, 0),
			load(bpf.LoadMemShift{Off: offIPv4}),
			load(bpf.LoadIndirect{Off: offL4SrcPort, Size: 2}),
			jeq(uint32(e.Port), toAccept, 0),
			load(bpf.LoadIndirect{Off: offL4DstPort, Size: 2}),
			jeq(uint32(e.Port), toAccept, toDrop),
		)
	}

	insts := resolve(steps)
	vm, err := bpf.NewVM(insts)
	if err != nil {
		return nil, fmt.Errorf("failed to load BPF program: %w", err)
	}
	return &BPF{insts: insts, vm: vm}, nil
}

// resolve turns labelled steps into instructions followed by the accept
// and drop returns.
func resolve(steps []step) []bpf.Instruction {
	acceptIdx := len(steps)
	dropIdx := len(steps) + 1

	target := func(i, t int) uint8 {
		switch t {
		case toAccept:
			return uint8(acceptIdx - i - 1)
		case toDrop:
			return uint8(dropIdx - i - 1)
		default:
			return uint8(t)
		}
	}

	insts := make([]bpf.Instruction, 0, len(steps)+2)
	for i, s := range steps {
		if !s.jump {
			insts = append(insts, s.ins)
			continue
		}
		insts = append(insts, bpf.JumpIf{
			Cond:      s.cond,
			Val:       s.val,
			SkipTrue:  target(i, s.jt),
			SkipFalse: target(i, s.jf),
		})
	}
	return append(insts,
		bpf.RetConstant{Val: acceptLen},
		bpf.RetConstant{Val: 0},
	)
}

// Match runs the program over frame.
func (f *BPF) Match(frame []byte) (bool, error) {
	n, err := f.vm.Run(frame)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Raw returns the program in kernel wire form.
func (f *BPF) Raw() ([]bpf.RawInstruction, error) {
	raw, err := bpf.Assemble(f.insts)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble BPF program: %w", err)
	}
	return raw, nil
}

// Len is the number of instructions in the program.
func (f *BPF) Len() int {
	return len(f.insts)
}
