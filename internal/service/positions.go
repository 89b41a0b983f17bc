package service

// The two matching questionnaires share no question IDs; the engine
// pairs them by 1-based ordinal position. This table is the pairing
// convention in one place: reordering either questionnaire without
// updating it silently breaks matching, so every position lookup in the
// filter and scorer goes through these names.

// PATIENT_MATCHING question positions.
const (
	patientPosModality      = 1  // requested therapy modality
	patientPosRecentBreakup = 6  // "Sí"/"No": recent breakup or loss
	patientPosWorkAreas     = 8  // areas of concern (MULTIPLE)
	patientPosDuration      = 9  // how long the problem has lasted
	patientPosAffectation   = 10 // how much it affects daily life
	patientPosMedication    = 12 // "Sí"/"No": on psychiatric medication
	patientPosGenderPref    = 13 // preferred therapist gender
	patientPosLanguages     = 14 // spoken languages (MULTIPLE)
	patientPosStyle         = 15 // preferred therapeutic style
	patientPosSchedule      = 16 // availability slots (MULTIPLE)
)

// PSYCHOLOGIST_MATCHING question positions.
const (
	psychPosModality        = 1  // offered modalities (MULTIPLE)
	psychPosMinorFormation  = 2  // "Sí"/"No": formation for treating minors
	psychPosMinorExperience = 3  // experience treating minors
	psychPosExperience      = 4  // years of clinical experience
	psychPosWorkAreas       = 5  // areas of expertise (MULTIPLE)
	psychPosComplexity      = 6  // preferred case complexity
	psychPosStyle           = 8  // therapeutic style
	psychPosAgeRange        = 9  // patient age ranges treated
	psychPosCrisis          = 10 // comfort handling acute crises
	psychPosLanguages       = 11 // spoken languages (MULTIPLE)
	psychPosGender          = 13 // therapist gender
	psychPosSchedule        = 14 // availability slots (MULTIPLE)
	psychPosMedication      = 16 // experience with medicated patients
)

// Answer-label keywords the engine matches on. Labels come from the
// seeded Spanish questionnaires; comparisons are done on normalized
// (lowercased, trimmed) text.
const (
	kwMinor          = "menor"
	kwIndividual     = "individual"
	kwCouple         = "pareja"
	kwMinorModality  = "infantojuvenil"
	kwYes            = "sí"
	kwUnderOneYear   = "< 1 año"
	kwVeryAffected   = "muchísimo"
	kwQuiteAffected  = "mucho"
	kwOverSixMonths  = "más de 6 meses"
	kwYears          = "años"
	kwOverSevenYears = "> 7"
	kwThreeToSeven   = "3-7"
	kwOneToThree     = "1-3"
	kwMildCases      = "leves"
	kwComplexCases   = "complejos"
	kwAdaptive       = "adapto"
	kwBalanced       = "equilibrad"
	kwPractical      = "práctic"
	kwExploratory    = "explorator"
	kwAllAges        = "todas"
	kwHigh           = "alta"
	kwMedium         = "media"
	kwIndifferent    = "indiferente"
	kwUsually        = "habitualmente"
	kwSomeCases      = "algunos casos"
)
