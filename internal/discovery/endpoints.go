package discovery

// knownEndpoints is the hand-maintained list of stats API endpoints
var knownEndpoints = []string{
	"AllTimeLeadersGrids",
	"AssistLeaders",
	"AssistTracker",
	"BoxScoreAdvancedV2",
	"BoxScoreAdvancedV3",
	"BoxScoreDefensiveV2",
	"BoxScoreFourFactorsV2",
	"BoxScoreFourFactorsV3",
	"BoxScoreHustleV2",
	"BoxScoreMatchupsV3",
	"BoxScoreMiscV2",
	"BoxScoreMiscV3",
	"BoxScorePlayerTrackV3",
	"BoxScoreScoringV2",
	"BoxScoreScoringV3",
	"BoxScoreSummaryV2",
	"BoxScoreTraditionalV2",
	"BoxScoreTraditionalV3",
	"BoxScoreUsageV2",
	"BoxScoreUsageV3",
	"CommonAllPlayers",
	"CommonPlayerInfo",
	"CommonPlayoffSeries",
	"CommonTeamRoster",
	"CommonTeamYears",
	"CumeStatsPlayer",
	"CumeStatsPlayerGames",
	"CumeStatsTeam",
	"CumeStatsTeamGames",
	"DraftBoard",
	"DraftCombineDrillResults",
	"DraftCombineNonStationaryShooting",
	"DraftCombinePlayerAnthro",
	"DraftCombineSpotShooting",
	"DraftCombineStats",
	"DraftHistory",
	"FantasyWidget",
	"FranchiseHistory",
	"FranchiseLeaders",
	"FranchisePlayers",
	"GameRotation",
	"GLAlumBoxScoreSimilarityScore",
	"HomePageLeaders",
	"HomePageV2",
	"HustleStatsBoxScore",
	"InfographicFanDuelPlayer",
	"LeadersTiles",
	"LeagueDashLineups",
	"LeagueDashOppPtShot",
	"LeagueDashPlayerBioStats",
	"LeagueDashPlayerClutch",
	"LeagueDashPlayerPtShot",
	"LeagueDashPlayerShotLocations",
	"LeagueDashPlayerStats",
	"LeagueDashPtDefend",
	"LeagueDashPtStats",
	"LeagueDashPtTeamDefend",
	"LeagueDashTeamClutch",
	"LeagueDashTeamPtShot",
	"LeagueDashTeamShotLocations",
	"LeagueDashTeamStats",
	"LeagueGameFinder",
	"LeagueGameLog",
	"LeagueHustleStatsPlayer",
	"LeagueHustleStatsTeam",
	"LeagueLeaders",
	"LeagueLineupViz",
	"LeaguePlayerOnDetails",
	"LeagueSeasonMatchups",
	"LeagueStandings",
	"LeagueStandingsV3",
	"MatchupsRollup",
	"PlayByPlay",
	"PlayByPlayV2",
	"PlayByPlayV3",
	"PlayerAwards",
	"PlayerCareerByCollege",
	"PlayerCareerByCollegeRollup",
	"PlayerCareerStats",
	"PlayerCompare",
	"PlayerDashboardByClutch",
	"PlayerDashboardByGameSplits",
	"PlayerDashboardByGeneralSplits",
	"PlayerDashboardByLastNGames",
	"PlayerDashboardByShootingSplits",
	"PlayerDashboardByTeamPerformance",
	"PlayerDashboardByYearOverYear",
	"PlayerDashPtPass",
	"PlayerDashPtReb",
	"PlayerDashPtShotDefend",
	"PlayerDashPtShots",
	"PlayerEstimatedMetrics",
	"PlayerFantasyProfile",
	"PlayerFantasyProfileBarGraph",
	"PlayerGameLog",
	"PlayerGameLogs",
	"PlayerGameStreakFinder",
	"PlayerIndex",
	"PlayerNextNGames",
	"PlayerProfileV2",
	"PlayerVsPlayer",
	"PlayoffPicture",
	"ScoreboardV2",
	"ShotChartDetail",
	"ShotChartLeagueWide",
	"ShotChartLineupDetail",
	"SynergyPlayTypes",
	"TeamAndPlayersVsPlayers",
	"TeamDashboardByGeneralSplits",
	"TeamDashboardByShootingSplits",
	"TeamDashLineups",
	"TeamDashPtPass",
	"TeamDashPtReb",
	"TeamDashPtShots",
	"TeamDetails",
	"TeamEstimatedMetrics",
	"TeamGameLog",
	"TeamGameLogs",
	"TeamGameStreakFinder",
	"TeamHistoricalLeaders",
	"TeamInfoCommon",
	"TeamPlayerDashboard",
	"TeamPlayerOnOffDetails",
	"TeamPlayerOnOffSummary",
	"TeamVsPlayer",
	"TeamYearByYearStats",
	"VideoDetails",
	"VideoDetailsAsset",
	"VideoEvents",
	"VideoStatus",
	"WinProbabilityPBP",
}
