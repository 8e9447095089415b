package ballot

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jkorjus/ballotclient/cryptogram"
	"github.com/jkorjus/ballotclient/group"
)

var g = group.P256()

// drbg is a deterministic randomness source for reproducible test vectors.
type drbg struct {
	seed    [32]byte
	counter uint64
	buf     []byte
}

func newDRBG(seed string) *drbg {
	return &drbg{seed: sha256.Sum256([]byte(seed))}
}

func (d *drbg) Read(p []byte) (int, error) {
	for len(d.buf) < len(p) {
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], d.counter)
		d.counter++
		block := sha256.Sum256(append(d.seed[:], ctr[:]...))
		d.buf = append(d.buf, block[:]...)
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

func testContests() map[string]ContestConfig {
	return map[string]ContestConfig{
		"1": {
			Reference: "1",
			Marking:   MarkingRule{MinMarks: 1, MaxMarks: 1},
			Encoding:  EncodingRule{CodeSize: 1, MaxSize: 0, CryptogramCount: 1},
			Options: []OptionConfig{
				{Reference: "option1", Code: 1, Title: "Option 1"},
				{Reference: "option2", Code: 2, Title: "Option 2"},
				{Reference: "option3", Code: 3, Title: "Option 3"},
			},
		},
		"2": {
			Reference: "2",
			Marking:   MarkingRule{MinMarks: 0, MaxMarks: 1, BlankAllowed: true},
			Encoding:  EncodingRule{CodeSize: 2, MaxSize: 8, CryptogramCount: 5},
			Options: []OptionConfig{
				{Reference: "optiona", Code: 1, Title: "Option A"},
				{Reference: "optionb", Code: 2, Title: "Option B"},
				{Reference: "write-in", Code: 3, Title: "Write-in",
					WriteIn: &WriteInRule{MaxSize: 8, Encoding: EncodingUTF8}},
			},
		},
	}
}

// emptyShares builds the server-side empty cryptograms for every contest
// and returns them together with the server's opening.
func emptyShares(t *testing.T, contests map[string]ContestConfig, pk group.Element,
	rand *drbg) (map[string][]cryptogram.Cryptogram, Opening) {
	t.Helper()

	shares := make(map[string][]cryptogram.Cryptogram, len(contests))
	opening := Opening{
		Randomizers: make(map[string][]*big.Int, len(contests)),
		Randomness:  big.NewInt(7),
	}
	for ref, cfg := range contests {
		cgs := make([]cryptogram.Cryptogram, cfg.Encoding.CryptogramCount)
		rs := make([]*big.Int, cfg.Encoding.CryptogramCount)
		for i := range cgs {
			cg, r, err := cryptogram.Empty(g, pk, rand)
			require.NoError(t, err)
			cgs[i] = cg
			rs[i] = r
		}
		shares[ref] = cgs
		opening.Randomizers[ref] = rs
	}
	return shares, opening
}

func TestContestConfigValidate(t *testing.T) {
	for ref, cfg := range testContests() {
		if err := cfg.Validate(); err != nil {
			t.Errorf("contest %s: %v", ref, err)
		}
	}

	bad := testContests()["1"]
	bad.Encoding.CryptogramCount = 2
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inconsistent cryptogram count")
	}

	bad = testContests()["1"]
	bad.Options[1].Code = 1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for duplicate option code")
	}

	bad = testContests()["2"]
	bad.Options[2].WriteIn.MaxSize = 100
	if err := bad.Validate(); err == nil {
		t.Error("expected error for write-in size over budget")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	rand := newDRBG("round-trip")
	contests := testContests()

	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	pk := kp.Public

	empty, serverOpening := emptyShares(t, contests, pk, rand)

	cvr := CastVoteRecord{
		"1": {Reference: "option2"},
		"2": {Reference: "write-in", Text: "Jane Doe"},
	}
	envelopes, err := EncryptRecord(g, cvr, contests, empty, pk, rand)
	require.NoError(t, err)
	require.Len(t, envelopes, 2)

	for ref, env := range envelopes {
		require.Len(t, env.Cryptograms, contests[ref].Encoding.CryptogramCount)
		require.NoError(t, VerifyEnvelope(g, env, empty[ref], pk))
	}

	voterOpening := Opening{Randomizers: map[string][]*big.Int{}, Randomness: big.NewInt(5)}
	combined := map[string][]cryptogram.Cryptogram{}
	for ref, env := range envelopes {
		voterOpening.Randomizers[ref] = env.Randomizers
		combined[ref] = env.Cryptograms
	}

	results, err := DecryptContests(g, contests, combined, []Opening{voterOpening, serverOpening}, pk)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "1", results[0].ContestReference)
	require.Equal(t, []OptionSelection{{Reference: "option2"}}, results[0].Selections)
	require.Equal(t, "2", results[1].ContestReference)
	require.Equal(t, []OptionSelection{{Reference: "write-in", Text: "Jane Doe"}}, results[1].Selections)
}

func TestBlankVoteRoundTrip(t *testing.T) {
	rand := newDRBG("blank")
	contests := testContests()

	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, serverOpening := emptyShares(t, contests, kp.Public, rand)

	cvr := CastVoteRecord{"2": {}}
	envelopes, err := EncryptRecord(g, cvr, contests, empty, kp.Public, rand)
	require.NoError(t, err)

	combined := map[string][]cryptogram.Cryptogram{"2": envelopes["2"].Cryptograms}
	voterOpening := Opening{
		Randomizers: map[string][]*big.Int{"2": envelopes["2"].Randomizers},
		Randomness:  big.NewInt(1),
	}

	results, err := DecryptContests(g, contests, combined, []Opening{voterOpening, serverOpening}, kp.Public)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Selections)
}

func TestCorruptRecordFailsBeforeCrypto(t *testing.T) {
	rand := newDRBG("corrupt")
	contests := testContests()
	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, _ := emptyShares(t, contests, kp.Public, rand)

	cases := []struct {
		name   string
		cvr    CastVoteRecord
		reason string
	}{
		{"unknown contest", CastVoteRecord{"99": {Reference: "option1"}}, "invalid contest"},
		{"unknown option", CastVoteRecord{"1": {Reference: "nope"}}, "invalid option"},
		{"text on plain option", CastVoteRecord{"1": {Reference: "option1", Text: "x"}}, "invalid option"},
		{"write-in too long", CastVoteRecord{"2": {Reference: "write-in", Text: "far too long text"}}, "invalid option"},
		{"blank where disallowed", CastVoteRecord{"1": {}}, "blank vote not allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EncryptRecord(g, tc.cvr, contests, empty, kp.Public, rand)
			var corrupt *CorruptRecordError
			require.ErrorAs(t, err, &corrupt)
			require.Equal(t, tc.reason, corrupt.Reason)
		})
	}
}

func TestTrackingCodeDeterministic(t *testing.T) {
	rand := newDRBG("tracking")
	contests := testContests()
	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, _ := emptyShares(t, contests, kp.Public, rand)

	cvr := CastVoteRecord{"1": {Reference: "option1"}, "2": {Reference: "optiona"}}
	envelopes, err := EncryptRecord(g, cvr, contests, empty, kp.Public, rand)
	require.NoError(t, err)

	code, err := TrackingCode(envelopes)
	require.NoError(t, err)
	require.Len(t, code, 64)

	again, err := TrackingCode(envelopes)
	require.NoError(t, err)
	require.Equal(t, code, again)

	// A different envelope set yields a different code.
	other, err := EncryptRecord(g, cvr, contests, empty, kp.Public, rand)
	require.NoError(t, err)
	otherCode, err := TrackingCode(other)
	require.NoError(t, err)
	require.NotEqual(t, code, otherCode)
}

func TestDeterministicScenario(t *testing.T) {
	contests := testContests()

	run := func() (map[string]Envelope, string) {
		rand := newDRBG("fixed-seed")
		kp, err := cryptogram.GenerateKeyPair(g, rand)
		require.NoError(t, err)
		empty, _ := emptyShares(t, contests, kp.Public, rand)
		cvr := CastVoteRecord{"1": {Reference: "option1"}, "2": {Reference: "optiona"}}
		envelopes, err := EncryptRecord(g, cvr, contests, empty, kp.Public, rand)
		require.NoError(t, err)
		code, err := TrackingCode(envelopes)
		require.NoError(t, err)
		return envelopes, code
	}

	env1, code1 := run()
	env2, code2 := run()
	require.Equal(t, code1, code2)
	require.Len(t, code1, 64)

	for ref := range env1 {
		w1, err := env1[ref].Cryptograms[0].ToWire()
		require.NoError(t, err)
		w2, err := env2[ref].Cryptograms[0].ToWire()
		require.NoError(t, err)
		require.Equal(t, w1, w2)
	}
}

func TestTamperedProofFailsVerification(t *testing.T) {
	rand := newDRBG("proofs")
	contests := testContests()
	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, _ := emptyShares(t, contests, kp.Public, rand)

	envelopes, err := EncryptRecord(g, CastVoteRecord{"1": {Reference: "option1"}},
		contests, empty, kp.Public, rand)
	require.NoError(t, err)

	env := envelopes["1"]
	env.Proofs[0].Response = new(big.Int).Add(env.Proofs[0].Response, big.NewInt(1))
	err = VerifyEnvelope(g, env, empty["1"], kp.Public)
	var pfErr *ProofError
	require.ErrorAs(t, err, &pfErr)
	require.Equal(t, "1", pfErr.Contest)
}

func TestOpeningCommitment(t *testing.T) {
	o := Opening{
		Randomizers: map[string][]*big.Int{
			"1": {big.NewInt(11), big.NewInt(12)},
			"2": {big.NewInt(13)},
		},
		Randomness: big.NewInt(99),
	}
	commitment := CommitOpening(o)
	require.NoError(t, VerifyOpeningCommitment(o, commitment))

	tampered := o
	tampered.Randomizers = map[string][]*big.Int{
		"1": {big.NewInt(11), big.NewInt(12)},
		"2": {big.NewInt(14)},
	}
	err := VerifyOpeningCommitment(tampered, commitment)
	var cErr *CommitmentError
	require.ErrorAs(t, err, &cErr)
}

func TestVerifyEmptyShareOpening(t *testing.T) {
	rand := newDRBG("empty-share")
	contests := testContests()
	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, serverOpening := emptyShares(t, contests, kp.Public, rand)

	require.NoError(t, VerifyEmptyShareOpening(g, empty, serverOpening, kp.Public))

	bad := Opening{Randomizers: map[string][]*big.Int{}, Randomness: serverOpening.Randomness}
	for ref, rs := range serverOpening.Randomizers {
		cp := make([]*big.Int, len(rs))
		copy(cp, rs)
		bad.Randomizers[ref] = cp
	}
	bad.Randomizers["1"][0] = new(big.Int).Add(bad.Randomizers["1"][0], big.NewInt(1))
	err = VerifyEmptyShareOpening(g, empty, bad, kp.Public)
	var cErr *CommitmentError
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, "1", cErr.Contest)
}

func TestSpoilReproducesRecord(t *testing.T) {
	rand := newDRBG("spoil")
	contests := testContests()
	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, serverOpening := emptyShares(t, contests, kp.Public, rand)

	cvr := CastVoteRecord{"1": {Reference: "option3"}, "2": {Reference: "optionb"}}
	envelopes, err := EncryptRecord(g, cvr, contests, empty, kp.Public, rand)
	require.NoError(t, err)

	testCode, err := GenerateTestCode(rand)
	require.NoError(t, err)
	require.Len(t, testCode, 32)

	spoiled, voterOpening, err := SpoilEnvelopes(g, envelopes, kp.Public, testCode, "voter-1", rand)
	require.NoError(t, err)

	results, err := DecryptContests(g, contests, spoiled, []Opening{voterOpening, serverOpening}, kp.Public)
	require.NoError(t, err)
	require.Equal(t, []OptionSelection{{Reference: "option3"}}, results[0].Selections)
	require.Equal(t, []OptionSelection{{Reference: "optionb"}}, results[1].Selections)

	// The audit layer is reproducible from the test code alone.
	again, _, err := SpoilEnvelopes(g, envelopes, kp.Public, testCode, "voter-1", rand)
	require.NoError(t, err)
	for ref := range spoiled {
		for i := range spoiled[ref] {
			require.True(t, spoiled[ref][i].R.IsEqual(again[ref][i].R))
			require.True(t, spoiled[ref][i].C.IsEqual(again[ref][i].C))
		}
	}
}

func TestDecryptFailureClasses(t *testing.T) {
	rand := newDRBG("failure-classes")
	contests := testContests()
	kp, err := cryptogram.GenerateKeyPair(g, rand)
	require.NoError(t, err)
	empty, serverOpening := emptyShares(t, contests, kp.Public, rand)

	envelopes, err := EncryptRecord(g, CastVoteRecord{"1": {Reference: "option1"}},
		contests, empty, kp.Public, rand)
	require.NoError(t, err)

	combined := map[string][]cryptogram.Cryptogram{"1": envelopes["1"].Cryptograms}
	voterOpening := Opening{
		Randomizers: map[string][]*big.Int{"1": envelopes["1"].Randomizers},
		Randomness:  big.NewInt(3),
	}

	// Missing contest in an opening is a commitment failure.
	_, err = DecryptContests(g, contests, combined,
		[]Opening{voterOpening, {Randomizers: map[string][]*big.Int{}}}, kp.Public)
	var cErr *CommitmentError
	require.ErrorAs(t, err, &cErr)

	// A wrong randomizer decrypts to garbage outside the block domain,
	// which is an integrity failure, not a commitment failure.
	badOpening := Opening{
		Randomizers: map[string][]*big.Int{
			"1": {new(big.Int).Add(envelopes["1"].Randomizers[0], big.NewInt(1))},
		},
		Randomness: big.NewInt(3),
	}
	_, err = DecryptContests(g, contests, combined,
		[]Opening{badOpening, serverOpening}, kp.Public)
	var iErr *IntegrityError
	require.ErrorAs(t, err, &iErr)
	require.False(t, errors.As(err, &cErr))
}