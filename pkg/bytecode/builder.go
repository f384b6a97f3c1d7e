package bytecode

// Builder accumulates instructions for a single chunk under compilation,
// tracking maximum stack depth as it goes so the finished chunk can store
// it. One Builder exists per chunk under compilation (top-level or nested
// lambda), rather than one shared emit cursor for an entire program.
type Builder struct {
	code     []byte
	depth    int
	maxDepth int
}

func NewBuilder() *Builder { return &Builder{} }

// Len returns the current bytecode offset, used as a jump-patch target.
func (b *Builder) Len() int { return len(b.code) }

// adjustDepth tracks the net stack effect of an emitted instruction so
// MaxDepth() reflects the worst case: each chunk's maximum value-stack
// depth is statically computable because there is no backward jump
// within a chunk.
func (b *Builder) adjustDepth(delta int) {
	b.depth += delta
	if b.depth > b.maxDepth {
		b.maxDepth = b.depth
	}
}

func (b *Builder) emitByte(by byte) { b.code = append(b.code, by) }

// Emit0 appends an opcode with no operand and the given net stack effect.
func (b *Builder) Emit0(op Op, stackDelta int) {
	b.emitByte(byte(op))
	b.adjustDepth(stackDelta)
}

// EmitByteOperand appends an opcode followed by a single-byte operand
// (GET_LOCAL/SET_LOCAL/GET_UPVALUE/SET_UPVALUE/CALL/TAIL_CALL).
func (b *Builder) EmitByteOperand(op Op, operand byte, stackDelta int) {
	b.emitByte(byte(op))
	b.emitByte(operand)
	b.adjustDepth(stackDelta)
}

// EmitUint16Operand appends an opcode followed by a pool-index operand
// (CONST/GET_GLOBAL/DEFINE_GLOBAL/SET_GLOBAL/CLOSURE).
func (b *Builder) EmitUint16Operand(op Op, operand uint16, stackDelta int) {
	b.emitByte(byte(op))
	b.code = append(b.code, EncodeUint16(operand)...)
	b.adjustDepth(stackDelta)
}

// EmitJump appends a jump opcode with a placeholder 32-bit target offset
// and returns the offset of that placeholder, to be patched once the jump
// target is known via PatchJump. Jumps are forward-only.
func (b *Builder) EmitJump(op Op, stackDelta int) int {
	b.emitByte(byte(op))
	placeholder := len(b.code)
	b.code = append(b.code, 0, 0, 0, 0)
	b.adjustDepth(stackDelta)
	return placeholder
}

// PatchJump writes the current bytecode length (the jump target) into the
// placeholder returned by EmitJump.
func (b *Builder) PatchJump(placeholder int) {
	target := uint32(len(b.code))
	copy(b.code[placeholder:placeholder+4], EncodeUint32(target))
}

// Code returns the accumulated instruction stream.
func (b *Builder) Code() []byte { return b.code }

// MaxDepth returns the statically computed maximum stack depth.
func (b *Builder) MaxDepth() int { return b.maxDepth }
