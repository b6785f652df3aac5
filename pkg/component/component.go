package component

// Mode selects which matrix or vector a MatrixContributor reports.
type Mode int

const (
	ModeDefault Mode = iota
	ModeYBus
	ModeJacobian
	ModeRHS
)

// Loader is implemented by payloads that initialise themselves from parsed
// attributes.
type Loader interface {
	Load(data *DataCollection) error
}

// ExchangeUser is implemented by payloads whose state is synchronised to
// ghost copies. ExchangeSize is the byte size of the payload's slot;
// SetExchangeBuffer hands the payload its slot after allocation.
type ExchangeUser interface {
	ExchangeSize() int
	SetExchangeBuffer(buf []byte)
}

// MatrixContributor is implemented by payloads that contribute blocks to
// network-wide matrices. ok is false when the payload contributes nothing
// in the given mode.
type MatrixContributor interface {
	MatrixSize(mode Mode) (rows, cols int, ok bool)
	MatrixValues(mode Mode) ([]complex128, bool)
}

// ModeSetter is implemented by payloads whose behaviour depends on Mode.
type ModeSetter interface {
	SetMode(mode Mode)
}

// ReferenceSetter is implemented by bus payloads that track whether they are
// the reference (slack) bus.
type ReferenceSetter interface {
	SetReferenceBus(ref bool)
}

// BaseBus provides the defaults every bus payload needs. Embed it.
type BaseBus struct {
	OriginalIndex int
	Reference     bool
	Mode          Mode
}

// Load reads the bus number.
func (b *BaseBus) Load(data *DataCollection) error {
	if n, ok := data.GetInt(BusNumber); ok {
		b.OriginalIndex = n
	}
	return nil
}

func (b *BaseBus) SetReferenceBus(ref bool) { b.Reference = ref }
func (b *BaseBus) IsReferenceBus() bool     { return b.Reference }
func (b *BaseBus) SetMode(mode Mode)        { b.Mode = mode }

// BaseBranch provides the defaults every branch payload needs. Embed it.
type BaseBranch struct {
	FromBus int
	ToBus   int
	Mode    Mode
}

// Load reads the endpoint bus numbers.
func (b *BaseBranch) Load(data *DataCollection) error {
	if n, ok := data.GetInt(BranchFromBus); ok {
		b.FromBus = n
	}
	if n, ok := data.GetInt(BranchToBus); ok {
		b.ToBus = n
	}
	return nil
}

func (b *BaseBranch) SetMode(mode Mode) { b.Mode = mode }

var (
	_ Loader          = (*BaseBus)(nil)
	_ Loader          = (*BaseBranch)(nil)
	_ ModeSetter      = (*BaseBus)(nil)
	_ ModeSetter      = (*BaseBranch)(nil)
	_ ReferenceSetter = (*BaseBus)(nil)
)
