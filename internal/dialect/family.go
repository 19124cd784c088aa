// Package dialect groups chains into families that share call shapes,
// economic rules and event-log layouts, and dispatches builders per family.
package dialect

// Category is an action category; a chain belongs to exactly one family per category.
type Category string

const (
	CategoryTransfer        Category = "transfer"
	CategoryTransferSupport Category = "transfer-support"
	CategoryXcm             Category = "xcm"
	CategoryXcmDispatch     Category = "xcm-dispatch"
	CategoryEventLog        Category = "event-log"
	CategoryStaking         Category = "staking"
)

// Family is a flat tag; families never inherit from each other.
type Family string

const (
	FamilyDefault Family = "default"

	// transfer
	FamilyAcala           Family = "acala"
	FamilyKintsugi        Family = "kintsugi"
	FamilyGenshiro        Family = "genshiro"
	FamilyBitCountry      Family = "bitcountry"
	FamilyStatemine       Family = "statemine"
	FamilyRiochain        Family = "riochain"
	FamilySora            Family = "sora_substrate"
	FamilyAvail           Family = "avail"
	FamilyPendulum        Family = "pendulum"
	FamilyCentrifuge      Family = "centrifuge"
	FamilyDisableTransfer Family = "disable_transfer"

	// transfer-support
	FamilyTransferNotSupported Family = "not_supported"

	// xcm pallet
	FamilyPolkadotXcm Family = "polkadotXcm"
	FamilyXcmPallet   Family = "xcmPallet"
	FamilyXTokens     Family = "xTokens"

	// xcm-dispatch and event-log
	FamilyMoonbeam  Family = "moonbeam"
	FamilyAstar     Family = "astar"
	FamilyStatemint Family = "statemint"
	FamilySubstrate Family = "substrate"
	FamilyBifrost   Family = "bifrost"

	// staking
	FamilyRelay     Family = "relay"
	FamilyPara      Family = "para"
	FamilyAmplitude Family = "amplitude"
)

// defaultFamilies is the fallback per category when no family claims a chain.
var defaultFamilies = map[Category]Family{
	CategoryTransfer:        FamilyDefault,
	CategoryTransferSupport: FamilyDefault,
	CategoryXcm:             FamilyXTokens,
	CategoryXcmDispatch:     FamilySubstrate,
	CategoryEventLog:        FamilyDefault,
	CategoryStaking:         FamilyRelay,
}

// noTransferAllFamilies are transfer families whose runtimes reject a
// literal zero-remainder transfer, so they are always fee-checked.
var noTransferAllFamilies = []Family{FamilyAcala, FamilyGenshiro, FamilyBitCountry, FamilyStatemine}

type membership struct {
	category Category
	family   Family
	chains   []string
}

// productionMemberships is the chain list the wallet ships with.
var productionMemberships = []membership{
	{CategoryTransfer, FamilyAcala, []string{"karura", "acala", "acala_testnet"}},
	{CategoryTransfer, FamilyKintsugi, []string{"kintsugi", "kintsugi_test", "interlay", "mangatax_para"}},
	{CategoryTransfer, FamilyGenshiro, []string{"genshiro_testnet", "genshiro", "equilibrium_parachain"}},
	{CategoryTransfer, FamilyBitCountry, []string{"pioneer", "bitcountry", "bifrost", "bifrost_dot"}},
	{CategoryTransfer, FamilyStatemine, []string{"statemint", "statemine", "darwinia2", "astar", "shiden", "shibuya",
		"parallel", "liberland", "liberlandTest", "dentnet", "dbcchain"}},
	{CategoryTransfer, FamilyRiochain, []string{"riochain"}},
	{CategoryTransfer, FamilySora, []string{"sora_substrate"}},
	{CategoryTransfer, FamilyAvail, []string{"kate", "goldberg_testnet"}},
	{CategoryTransfer, FamilyPendulum, []string{"pendulum", "amplitude", "amplitude_test", "hydradx_main"}},
	{CategoryTransfer, FamilyCentrifuge, []string{"centrifuge"}},
	{CategoryTransfer, FamilyDisableTransfer, []string{"invarch", "crab", "pangolin"}},

	{CategoryTransferSupport, FamilyTransferNotSupported, []string{"subspace_gemini_3a", "kulupu", "joystream",
		"equilibrium_parachain", "genshiro_testnet", "genshiro"}},

	{CategoryXcm, FamilyPolkadotXcm, []string{"astar", "shiden", "statemine", "statemint", "equilibrium_parachain",
		"rococo_assethub", "mythos"}},
	{CategoryXcm, FamilyXcmPallet, []string{"polkadot", "kusama", "rococo"}},

	{CategoryXcmDispatch, FamilyMoonbeam, []string{"moonbase", "moonriver", "moonbeam"}},
	{CategoryXcmDispatch, FamilyAstar, []string{"astar", "shiden"}},
	{CategoryXcmDispatch, FamilyStatemint, []string{"statemint", "statemine"}},

	{CategoryEventLog, FamilyAcala, []string{"karura", "acala", "acala_testnet"}},
	{CategoryEventLog, FamilyKintsugi, []string{"kintsugi", "kintsugi_test", "interlay"}},
	{CategoryEventLog, FamilyGenshiro, []string{"genshiro_testnet", "genshiro", "equilibrium_parachain"}},
	{CategoryEventLog, FamilyBifrost, []string{"bifrost"}},
	{CategoryEventLog, FamilyAstar, []string{"astar", "shiden"}},
	{CategoryEventLog, FamilyMoonbeam, []string{"moonbeam", "moonriver"}},
	{CategoryEventLog, FamilyStatemint, []string{"statemint", "statemine"}},

	{CategoryStaking, FamilyPara, []string{"moonbeam", "moonriver", "moonbase", "turing", "turingStaging", "bifrost",
		"bifrost_testnet", "calamari_test", "calamari", "manta_network"}},
	{CategoryStaking, FamilyAstar, []string{"astar", "shiden", "shibuya"}},
	{CategoryStaking, FamilyAmplitude, []string{"amplitude", "amplitude_test", "kilt", "kilt_peregrine", "pendulum"}},
}
