package blueprint

// Section prompts. Each asks for a JSON object matching the section schema;
// the adapter enforces the shape.

const promptIndustryMarket = `You are a marketing strategist. Analyze the industry and market for the
business described in the input. Respond with a JSON object:
{
  "marketSummary": string,        // 2-3 sentence market overview
  "maturity": string,             // "emerging" | "growth" | "mature" | "declining"
  "trends": [string],             // 3-5 current trends relevant to this business
  "notes": [string]               // anything the strategist should flag
}`

const promptICPValidation = `You are a marketing strategist. Validate the ideal customer profile against
the industry analysis in the input. Respond with a JSON object:
{
  "icpSummary": string,           // refined one-paragraph ICP
  "painPoints": [string],         // top pains this ICP feels
  "buyingTriggers": [string],     // events that start a buying process
  "objections": [string],         // likely sales objections
  "fitScore": number              // 0-1, how well the offer fits the ICP
}`

const promptOfferAnalysis = `You are a marketing strategist. Analyze the offer described in the input,
including its pricing. Respond with a JSON object:
{
  "valueProposition": string,
  "pricingTiers": [{
    "name": string,
    "priceUsd": number,
    "description": string,
    "relevanceSignals": [string]  // e.g. "flagship", "add-on", "legacy"
  }],
  "differentiators": [string],
  "risks": [{ "name": string, "probability": number, "impact": number }]  // 1-5 scales
}`

const promptCompetitorOverview = `You are a competitive analyst. For each competitor named in the input,
give a positioning overview. Respond with a JSON object:
{
  "competitors": [{
    "name": string,               // exactly as given in the input
    "tier": string,               // copy the tier given in the input
    "positioning": string,
    "strengths": [string],
    "weaknesses": [string]
  }]
}`

const promptCompetitorDetail = `You are a competitive analyst. Produce a detailed profile of the single
competitor named in the input, relative to the user's offer. Respond with a JSON object:
{
  "name": string,
  "pricingNotes": string,
  "channelStrategy": string,
  "weaknessesToExploit": [string],
  "counterPositioning": string
}`

const promptCrossAnalysis = `You are a marketing strategist. Synthesize the completed analyses in the
input into a strategic direction. Respond with a JSON object:
{
  "strategicSummary": string,
  "opportunities": [string],
  "risks": [{ "name": string, "probability": number, "impact": number }],
  "recommendedFocus": string
}`

const promptPlatformMix = `You are a media planner. Choose advertising platforms for the business in
the input and split the budget across them. Percentages must sum to 100. Respond with a JSON object:
{
  "platforms": [{ "name": string, "percentage": number, "rationale": string }]
}`

const promptFunnelStages = `You are a media planner. Design the funnel stages for the business in the
input. Respond with a JSON object:
{
  "stages": [{ "name": string, "objective": string, "budgetShare": number }]
}`

const promptBudgetSplit = `You are a media planner. Given the platform mix in the input, allocate the
monthly budget per platform. Percentages must sum to 100. Respond with a JSON object:
{
  "monthlySpend": [{ "platform": string, "percentage": number }]
}`

const promptAdAngles = `You are a creative strategist. Write ad hooks for the funnel stages in the
input. Use only these angles: pain_point, social_proof, authority, curiosity, urgency,
transformation. Spread hooks across angles. Respond with a JSON object:
{
  "hooks": [{ "angle": string, "headline": string, "description": string }]
}`

const promptMeasurementPlan = `You are a media planner. Define the measurement plan for the budget and
hooks in the input. Respond with a JSON object:
{
  "kpis": [{ "name": string, "target": string, "cadence": string }]
}`
